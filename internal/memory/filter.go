package memory

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/rcliao/campaign-memory/internal/model"
)

type filterKind int

const (
	filterNone filterKind = iota
	filterByID
	filterByName
)

// Filter restricts a retrieval to one entity. At most one identity is
// honored; see FilterFrom.
type Filter struct {
	kind  filterKind
	value string
}

// None matches every record of the kind.
func None() Filter { return Filter{} }

// ByNaturalID matches records whose natural id equals id.
func ByNaturalID(id string) Filter { return Filter{kind: filterByID, value: id} }

// ByName matches records whose entity name equals name.
// Sessions have no name, so ByName is invalid for them.
func ByName(name string) Filter { return Filter{kind: filterByName, value: name} }

// FilterFrom builds a filter from optional identity arguments.
// The id takes precedence over the name when both are given.
func FilterFrom(id, name string) Filter {
	switch {
	case id != "":
		return ByNaturalID(id)
	case name != "":
		return ByName(name)
	}
	return None()
}

// IsNone reports whether f matches everything.
func (f Filter) IsNone() bool { return f.kind == filterNone }

func (f Filter) String() string {
	switch f.kind {
	case filterByID:
		return "id=" + f.value
	case filterByName:
		return "name=" + f.value
	}
	return "none"
}

// Metadata converts f into an exact-match metadata filter for kind.
func (f Filter) Metadata(kind model.Kind) (model.Metadata, error) {
	switch f.kind {
	case filterNone:
		return nil, nil
	case filterByID:
		if f.value == "" {
			return nil, goerr.Wrap(model.ErrInvalidFilter, "empty natural id", goerr.V("kind", kind))
		}
		return model.Metadata{kind.IDField(): f.value}, nil
	case filterByName:
		if kind.NameField() == "" {
			return nil, goerr.Wrap(model.ErrInvalidFilter, "kind has no name field", goerr.V("kind", kind))
		}
		if f.value == "" {
			return nil, goerr.Wrap(model.ErrInvalidFilter, "empty name", goerr.V("kind", kind))
		}
		return model.Metadata{kind.NameField(): f.value}, nil
	}
	return nil, goerr.Wrap(model.ErrInvalidFilter, "unknown filter", goerr.V("filter", int(f.kind)))
}
