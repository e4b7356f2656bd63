package listing

import "strconv"

// pageDelta is how many neighbours of the current page are always shown.
const pageDelta = 2

// PageLabel is one entry of a pagination control: a page number or a gap.
type PageLabel struct {
	Page     int
	Ellipsis bool
}

func (l PageLabel) String() string {
	if l.Ellipsis {
		return "..."
	}
	return strconv.Itoa(l.Page)
}

// PageWindow returns the labels for a pagination control: the first and last
// page, current ± 2, and a single ellipsis for each gap. It returns nil when
// there is only one page. current is clamped into [1, total].
func PageWindow(current, total int) []PageLabel {
	if total <= 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	labels := []PageLabel{{Page: 1}}
	start := max(2, current-pageDelta)
	end := min(total-1, current+pageDelta)
	if start > 2 {
		labels = append(labels, PageLabel{Ellipsis: true})
	}
	for p := start; p <= end; p++ {
		labels = append(labels, PageLabel{Page: p})
	}
	if end < total-1 {
		labels = append(labels, PageLabel{Ellipsis: true})
	}
	return append(labels, PageLabel{Page: total})
}
