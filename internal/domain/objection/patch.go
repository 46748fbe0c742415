package objection

// Optional distinguishes "no change" from a value being set, including zero values
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an empty Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is set
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Patch is a partial update of an objection. Unset fields are left unchanged.
type Patch struct {
	FullName      Optional[string]
	ShareIdentity Optional[bool]
	Reason        Optional[string]
	Status        Optional[Status]
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return !p.FullName.IsSet() && !p.ShareIdentity.IsSet() && !p.Reason.IsSet() && !p.Status.IsSet()
}

func (p Patch) hasFieldChanges() bool {
	return p.FullName.IsSet() || p.ShareIdentity.IsSet() || p.Reason.IsSet()
}

// CanTransition is the single lifecycle rule: OPEN may move to SUBMITTED, nothing else moves
func CanTransition(from, to Status) bool {
	return from == StatusOpen && to == StatusSubmitted
}

// Merge applies patch onto a copy of existing. Either every field is applied or
// an *InvalidTransitionError is returned and nothing is. existing is never modified.
func Merge(existing *Objection, patch Patch) (*Objection, error) {
	if requested, ok := patch.Status.Get(); ok {
		if !CanTransition(existing.Status, requested) {
			return nil, NewInvalidTransitionError(existing.ID, existing.Status, requested)
		}
	} else if patch.hasFieldChanges() && !existing.Status.IsEditable() {
		return nil, NewNotEditableError(existing.ID, existing.Status)
	}

	merged := existing.Clone()
	if v, ok := patch.FullName.Get(); ok {
		merged.FullName = v
	}
	if v, ok := patch.ShareIdentity.Get(); ok {
		merged.ShareIdentity = &v
	}
	if v, ok := patch.Reason.Get(); ok {
		merged.Reason = v
	}
	if v, ok := patch.Status.Get(); ok {
		merged.Status = v
	}
	return merged, nil
}

// IsSubmission reports whether previous → current is the OPEN → SUBMITTED transition
func IsSubmission(previous, current Status) bool {
	return previous == StatusOpen && current == StatusSubmitted
}
