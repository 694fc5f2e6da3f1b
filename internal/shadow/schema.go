package shadow

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// FamilyName is the reserved column family added to every sandbox table.
const FamilyName = "_shadow"

// InvalidSchemaError reports a family set that cannot be turned into a
// sandbox schema.
type InvalidSchemaError struct {
	Family string
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema: family %q %s", e.Family, e.Reason)
}

// DeriveSchema returns original ∪ {FamilyName}.
//
// The input set is not modified. Fails with *InvalidSchemaError if the
// original already contains FamilyName or an empty family name.
func DeriveSchema(original mapset.Set[string]) (mapset.Set[string], error) {
	if original == nil {
		original = mapset.NewSet[string]()
	}
	if original.Contains("") {
		return nil, &InvalidSchemaError{Family: "", Reason: "has an empty name"}
	}
	if original.Contains(FamilyName) {
		return nil, &InvalidSchemaError{Family: FamilyName, Reason: "is reserved for sandbox tables"}
	}

	derived := original.Clone()
	derived.Add(FamilyName)
	return derived, nil
}

// IsSandboxSchema reports whether families carries the shadow family.
func IsSandboxSchema(families mapset.Set[string]) bool {
	return families != nil && families.Contains(FamilyName)
}

// Sorted returns the family names in byte order. FamilyName sorts ahead of
// lowercase names, so a derived schema lists "_shadow" first.
func Sorted(families mapset.Set[string]) []string {
	if families == nil {
		return []string{}
	}
	names := families.ToSlice()
	slices.Sort(names)
	return names
}
