package resort

import "time"

// openWindowDays is how long after its published opening date a resort
// is assumed to be operating, regardless of what the provider reported.
const openWindowDays = 50

// ApplyStatusRewrite corrects the view's status from the provider's
// published opening date: a resort that opened within the last
// openWindowDays is forced open, one whose opening date is still ahead
// is forced closed. Outside both windows the reported status stands.
// Reapplying the rewrite is a no-op, so it is safe on cached views.
func ApplyStatusRewrite(v *View, now time.Time) {
	if v == nil || v.Extra == nil {
		return
	}
	raw, ok := v.Extra[ExtraOpeningDate].(string)
	if !ok || len(raw) < len(time.DateOnly) {
		return
	}
	opening, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)])
	if err != nil {
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(opening).Hours() / 24)
	switch {
	case days < 0:
		v.Status = StatusClosed
	case days <= openWindowDays:
		v.Status = StatusOpen
	}
}
