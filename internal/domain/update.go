package domain

import "strings"

// Field enumerates the attributes an Update may touch. Nested profile
// attributes resolve to paths under Data.
type Field int

const (
	FieldType Field = iota + 1
	FieldData
	FieldCreatedAt
	FieldSpeechCount
	FieldPackageType
	FieldPackageID
	FieldPackageUniqueID
	FieldPackageStatus
	FieldPackageStarted
	FieldPackageExpire
	FieldActivePackageRef
)

var fieldPaths = map[Field][]string{
	FieldType:             {"Type"},
	FieldData:             {"Data"},
	FieldCreatedAt:        {"CreatedAt"},
	FieldSpeechCount:      {"Data", "speechCount"},
	FieldPackageType:      {"Data", "packageType"},
	FieldPackageID:        {"Data", "package"},
	FieldPackageUniqueID:  {"Data", "package_unique_id"},
	FieldPackageStatus:    {"Data", "packageStatus"},
	FieldPackageStarted:   {"Data", "packageStarted"},
	FieldPackageExpire:    {"Data", "packageExpire"},
	FieldActivePackageRef: {"Data", "activePackageRef"},
}

// Path returns the attribute path segments of f.
func (f Field) Path() []string { return fieldPaths[f] }

func (f Field) String() string { return strings.Join(fieldPaths[f], ".") }

// UpdateOp is how an action writes its field.
type UpdateOp int

const (
	// OpSet overwrites the field.
	OpSet UpdateOp = iota
	// OpSetIfAbsent writes only when the field does not exist yet.
	OpSetIfAbsent
	// OpAppend appends a list value, creating the list when missing.
	OpAppend
	// OpAdd adds a numeric delta.
	OpAdd
)

// Action is a single field write.
type Action struct {
	Field Field
	Op    UpdateOp
	Value any
}

// CondOp is a precondition kind.
type CondOp int

const (
	// CondItemExists requires the item to exist.
	CondItemExists CondOp = iota
	// CondGreaterThan requires a numeric field to exceed Value.
	CondGreaterThan
)

// Condition guards an Update; a failed condition surfaces as ErrConflict.
type Condition struct {
	Field Field
	Op    CondOp
	Value int
}

// Update is a typed, store-agnostic partial write.
type Update struct {
	actions    []Action
	conditions []Condition
}

// NewUpdate starts an empty update.
func NewUpdate() *Update { return &Update{} }

func (u *Update) Set(f Field, v any) *Update { return u.add(f, OpSet, v) }

func (u *Update) SetIfAbsent(f Field, v any) *Update { return u.add(f, OpSetIfAbsent, v) }

// Append adds v (a slice) to the end of the list field.
func (u *Update) Append(f Field, v any) *Update { return u.add(f, OpAppend, v) }

func (u *Update) Add(f Field, delta int) *Update { return u.add(f, OpAdd, delta) }

// RequireExists fails the update when the item is missing instead of
// creating a partial item.
func (u *Update) RequireExists() *Update {
	u.conditions = append(u.conditions, Condition{Op: CondItemExists})
	return u
}

func (u *Update) RequireGreaterThan(f Field, v int) *Update {
	u.conditions = append(u.conditions, Condition{Field: f, Op: CondGreaterThan, Value: v})
	return u
}

func (u *Update) Actions() []Action       { return u.actions }
func (u *Update) Conditions() []Condition { return u.conditions }
func (u *Update) Empty() bool             { return len(u.actions) == 0 }

func (u *Update) add(f Field, op UpdateOp, v any) *Update {
	u.actions = append(u.actions, Action{Field: f, Op: op, Value: v})
	return u
}

// PackageStatusUpdate changes only the status of an existing profile.
func PackageStatusUpdate(status PackageStatus) *Update {
	return NewUpdate().Set(FieldPackageStatus, status).RequireExists()
}

// RenewalUpdate re-activates a subscription for a fresh window.
func RenewalUpdate(status PackageStatus, w Window, allowance int) *Update {
	return NewUpdate().
		Set(FieldPackageStatus, status).
		Set(FieldPackageExpire, w.ExpiryString()).
		Set(FieldSpeechCount, allowance).
		RequireExists()
}

// GrantUpdate points an existing profile at a newly granted package.
func GrantUpdate(p Product, uniqueID string, status PackageStatus, w Window, ref PackageRef) *Update {
	return NewUpdate().
		Set(FieldPackageType, p.Key).
		Set(FieldPackageID, p.ID.String()).
		Set(FieldPackageUniqueID, uniqueID).
		Set(FieldPackageStatus, status).
		Set(FieldPackageStarted, w.StartString()).
		Set(FieldPackageExpire, w.ExpiryString()).
		Set(FieldActivePackageRef, ref).
		Set(FieldSpeechCount, p.Allowance).
		RequireExists()
}
