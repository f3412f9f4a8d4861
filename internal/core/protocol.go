package core

// Category is the coarse protocol class used for counting.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryICMP
	CategoryIGMP
	CategoryTCP
	CategoryUDP
)

// IP protocol numbers
const (
	ProtoICMP uint8 = 1
	ProtoIGMP uint8 = 2
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// Categories lists every category in status-line order.
var Categories = []Category{CategoryTCP, CategoryUDP, CategoryICMP, CategoryIGMP, CategoryOther}

func (c Category) String() string {
	switch c {
	case CategoryICMP:
		return "ICMP"
	case CategoryIGMP:
		return "IGMP"
	case CategoryTCP:
		return "TCP"
	case CategoryUDP:
		return "UDP"
	default:
		return "Others"
	}
}

// Reportable reports whether packets of this category get a full report.
func (c Category) Reportable() bool {
	return c == CategoryTCP || c == CategoryUDP
}

// Classify maps an IP protocol number to its category.
func Classify(protocol uint8) Category {
	switch protocol {
	case ProtoICMP:
		return CategoryICMP
	case ProtoIGMP:
		return CategoryIGMP
	case ProtoTCP:
		return CategoryTCP
	case ProtoUDP:
		return CategoryUDP
	default:
		return CategoryOther
	}
}
