package bot

import (
	"fmt"
	"strconv"
	"strings"

	"shopbot/internal/domain"
	"shopbot/internal/service"
)

// Action is a decoded button press. Every concrete type round-trips through
// Encode and ParseAction.
type Action interface {
	Encode() string
	sealed()
}

type (
	OpenMenu     struct{}
	OpenCatalog  struct{}
	OpenCategory struct{ ID int64 }
	OpenProduct  struct{ ID int64 }
	OpenCart     struct{}
	ClearCart    struct{}
	MyOrders     struct{}
	BeginSearch  struct{}

	// AddItem puts the variant's minimum quantity into the cart.
	AddItem struct {
		ProductID int64
		Unit      domain.Unit
	}
	StepItem struct {
		ProductID int64
		Unit      domain.Unit
		Dir       service.Direction
	}
	RemoveItem struct {
		ProductID int64
		Unit      domain.Unit
	}
	// EnterQuantity asks the buyer to type an exact quantity.
	EnterQuantity struct {
		ProductID int64
		Unit      domain.Unit
	}

	BeginCheckout struct{}
	Skip          struct{}
	Confirm       struct{}
	Cancel        struct{}

	OpenAdmin        struct{}
	BeginNewProduct  struct{}
	BeginNewCategory struct{}
	BeginAttach      struct{}
	PickProduct      struct{ ID int64 }
	PickCategory     struct{ ID int64 }

	// PickImage selects a suggested photo; Index < 0 means no photo.
	PickImage      struct{ Index int }
	ManageCatalog  struct{}
	ToggleProduct  struct{ ID int64 }
	ToggleCategory struct{ ID int64 }
	BeginBroadcast struct{}
	ShowStats      struct{}

	ListOrders   struct{}
	OpenOrder    struct{ ID string }
	ChangeStatus struct {
		OrderID string
		Action  domain.OrderAction
	}
)

func (OpenMenu) Encode() string { return "menu" }
func (OpenCatalog) Encode() string { return "catalog" }
func (a OpenCategory) Encode() string { return "cat:" + fmtID(a.ID) }
func (a OpenProduct) Encode() string { return "prod:" + fmtID(a.ID) }
func (OpenCart) Encode() string { return "cart" }
func (ClearCart) Encode() string { return "clear" }
func (MyOrders) Encode() string { return "my" }
func (BeginSearch) Encode() string { return "search" }
func (a AddItem) Encode() string { return item("add", a.ProductID, a.Unit) }
func (a StepItem) Encode() string {
	if a.Dir == service.Down {
		return item("dec", a.ProductID, a.Unit)
	}
	return item("inc", a.ProductID, a.Unit)
}
func (a RemoveItem) Encode() string { return item("rm", a.ProductID, a.Unit) }
func (a EnterQuantity) Encode() string { return item("qty", a.ProductID, a.Unit) }
func (BeginCheckout) Encode() string { return "checkout" }
func (Skip) Encode() string { return "skip" }
func (Confirm) Encode() string { return "confirm" }
func (Cancel) Encode() string { return "cancel" }
func (OpenAdmin) Encode() string { return "admin" }
func (BeginNewProduct) Encode() string { return "newprod" }
func (BeginNewCategory) Encode() string { return "newcat" }
func (BeginAttach) Encode() string { return "attach" }
func (a PickProduct) Encode() string { return "ap:" + fmtID(a.ID) }
func (a PickCategory) Encode() string { return "ac:" + fmtID(a.ID) }
func (ManageCatalog) Encode() string { return "manage" }
func (a ToggleProduct) Encode() string { return "togp:" + fmtID(a.ID) }
func (a ToggleCategory) Encode() string { return "togc:" + fmtID(a.ID) }
func (BeginBroadcast) Encode() string { return "bc" }
func (ShowStats) Encode() string { return "stats" }
func (ListOrders) Encode() string { return "orders" }
func (a OpenOrder) Encode() string { return "ord:" + a.ID }
func (a ChangeStatus) Encode() string { return "st:" + a.OrderID + ":" + string(a.Action) }
func (a PickImage) Encode() string {
	if a.Index < 0 {
		return "img:none"
	}
	return "img:" + strconv.Itoa(a.Index)
}

func (OpenMenu) sealed() {}
func (OpenCatalog) sealed() {}
func (OpenCategory) sealed() {}
func (OpenProduct) sealed() {}
func (OpenCart) sealed() {}
func (ClearCart) sealed() {}
func (MyOrders) sealed() {}
func (BeginSearch) sealed() {}
func (AddItem) sealed() {}
func (StepItem) sealed() {}
func (RemoveItem) sealed() {}
func (EnterQuantity) sealed() {}
func (BeginCheckout) sealed() {}
func (Skip) sealed() {}
func (Confirm) sealed() {}
func (Cancel) sealed() {}
func (OpenAdmin) sealed() {}
func (BeginNewProduct) sealed() {}
func (BeginNewCategory) sealed() {}
func (BeginAttach) sealed() {}
func (PickProduct) sealed() {}
func (PickCategory) sealed() {}
func (PickImage) sealed() {}
func (ManageCatalog) sealed() {}
func (ToggleProduct) sealed() {}
func (ToggleCategory) sealed() {}
func (BeginBroadcast) sealed() {}
func (ShowStats) sealed() {}
func (ListOrders) sealed() {}
func (OpenOrder) sealed() {}
func (ChangeStatus) sealed() {}

var simpleActions = map[string]Action{
	"menu":     OpenMenu{},
	"catalog":  OpenCatalog{},
	"cart":     OpenCart{},
	"clear":    ClearCart{},
	"my":       MyOrders{},
	"search":   BeginSearch{},
	"checkout": BeginCheckout{},
	"skip":     Skip{},
	"confirm":  Confirm{},
	"cancel":   Cancel{},
	"admin":    OpenAdmin{},
	"newprod":  BeginNewProduct{},
	"newcat":   BeginNewCategory{},
	"attach":   BeginAttach{},
	"manage":   ManageCatalog{},
	"bc":       BeginBroadcast{},
	"stats":    ShowStats{},
	"orders":   ListOrders{},
}

// ParseAction decodes button data. Unknown or malformed codes yield a
// validation error.
func ParseAction(data string) (Action, error) {
	data = strings.TrimSpace(data)
	if a, ok := simpleActions[data]; ok {
		return a, nil
	}
	parts := strings.Split(data, ":")
	bad := domain.Validationf("unknown action %q", data)

	switch {
	case len(parts) == 2:
		if parts[0] == "ord" {
			if parts[1] == "" {
				return nil, bad
			}
			return OpenOrder{ID: parts[1]}, nil
		}
		if parts[0] == "img" {
			if parts[1] == "none" {
				return PickImage{Index: -1}, nil
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 {
				return nil, bad
			}
			return PickImage{Index: n}, nil
		}
		n, err := parseID(parts[1])
		if err != nil {
			return nil, bad
		}
		switch parts[0] {
		case "cat":
			return OpenCategory{ID: n}, nil
		case "prod":
			return OpenProduct{ID: n}, nil
		case "ap":
			return PickProduct{ID: n}, nil
		case "ac":
			return PickCategory{ID: n}, nil
		case "togp":
			return ToggleProduct{ID: n}, nil
		case "togc":
			return ToggleCategory{ID: n}, nil
		}

	case len(parts) == 3 && parts[0] == "st":
		act, ok := domain.ParseOrderAction(parts[2])
		if !ok || parts[1] == "" {
			return nil, bad
		}
		return ChangeStatus{OrderID: parts[1], Action: act}, nil

	case len(parts) == 3:
		pid, err := parseID(parts[1])
		if err != nil {
			return nil, bad
		}
		unit, err := domain.ParseUnit(parts[2])
		if err != nil {
			return nil, bad
		}
		switch parts[0] {
		case "add":
			return AddItem{ProductID: pid, Unit: unit}, nil
		case "inc":
			return StepItem{ProductID: pid, Unit: unit, Dir: service.Up}, nil
		case "dec":
			return StepItem{ProductID: pid, Unit: unit, Dir: service.Down}, nil
		case "rm":
			return RemoveItem{ProductID: pid, Unit: unit}, nil
		case "qty":
			return EnterQuantity{ProductID: pid, Unit: unit}, nil
		}
	}
	return nil, bad
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return n, nil
}

func fmtID(n int64) string { return strconv.FormatInt(n, 10) }

func item(prefix string, productID int64, unit domain.Unit) string {
	return prefix + ":" + fmtID(productID) + ":" + string(unit)
}
