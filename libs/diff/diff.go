// Package diff computes field changelogs between two snapshots of a record.
package diff

import (
	"reflect"
	"slices"

	"github.com/google/uuid"
	odiff "github.com/r3labs/diff/v3"
)

func GetCustomDiffer() *odiff.Differ {
	ret, err := odiff.NewDiffer(odiff.CustomValueDiffers(&UUIDComparer{}))
	if err != nil {
		panic(err)
	}
	return ret
}

// ChangedFields returns the sorted top-level field names that differ between a and b.
func ChangedFields(a, b any) ([]string, error) {
	changelog, err := GetCustomDiffer().Diff(a, b)
	if err != nil {
		return nil, err
	}
	fields := []string{}
	for _, change := range changelog {
		if len(change.Path) == 0 {
			continue
		}
		if !slices.Contains(fields, change.Path[0]) {
			fields = append(fields, change.Path[0])
		}
	}
	slices.Sort(fields)
	return fields, nil
}

// UUIDComparer compares uuid.UUID values as a whole instead of byte by byte.
type UUIDComparer struct{}

var (
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// Match reports whether the values are uuids (or a uuid against nil).
func (c UUIDComparer) Match(a, b reflect.Value) bool {
	aok := a.Kind() == uuidType.Kind() && a.Type() == uuidType
	bok := b.Kind() == uuidType.Kind() && b.Type() == uuidType
	return (aok && bok) || (a.Kind() == reflect.Invalid && bok) || (b.Kind() == reflect.Invalid && aok)
}

func (c UUIDComparer) Diff(_ odiff.DiffType, _ odiff.DiffFunc, cl *odiff.Changelog, path []string, a reflect.Value, b reflect.Value, _ interface{}) error {
	valA := reflect.Indirect(a)
	valB := reflect.Indirect(b)

	// nil against a value is a change
	if !valA.IsValid() || !valB.IsValid() {
		if valA.IsValid() != valB.IsValid() {
			cl.Add(odiff.UPDATE, path, a.Interface(), b.Interface())
		}
		return nil
	}

	u1 := valA.Interface().(uuid.UUID)
	u2 := valB.Interface().(uuid.UUID)
	if u1 != u2 {
		cl.Add(odiff.UPDATE, path, u1, u2)
	}
	return nil
}

// InsertParentDiffer is a no-op: a uuid is a leaf.
func (c UUIDComparer) InsertParentDiffer(_ func(path []string, a reflect.Value, b reflect.Value, p interface{}) error) {
}
