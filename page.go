package inertiaclient

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-json-experiment/json"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiabase"
)

type (
	// Page is one fully resolved application view.
	Page = inertiabase.Page

	// ScrollRegion is the scroll offset of a scrollable page region.
	ScrollRegion = inertiabase.ScrollRegion
)

// TagInertia is the struct tag DecodeProps reads prop names from.
const TagInertia = "inertia"

const propDiscard = "-"

// DecodeProps copies the props of page onto the fields of dst, which must be
// a pointer to a struct.
//
// Only exported fields tagged with "inertia" are filled. The tag format is the
// one servers use to declare props: `inertia:"name[,options...]"`. Options are
// ignored on the client. A field whose prop is absent is left untouched.
//
// Example:
//
//	type UsersIndex struct {
//	    Users []User `inertia:"users"`
//	    Page  int    `inertia:"page,always"`
//	}
func DecodeProps(page *Page, dst any) error {
	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return errors.New("inertiaclient: dst must be a non-nil pointer")
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return errors.New("inertiaclient: dst must point to a struct")
	}

	typ := val.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tag, ok := field.Tag.Lookup(TagInertia)
		if !ok {
			continue
		}

		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		if name == propDiscard {
			continue
		}

		prop, ok := page.Prop(name)
		if !ok {
			continue
		}

		b, err := prop.MarshalJSON()
		if err != nil {
			return fmt.Errorf("inertiaclient: failed to encode prop %q: %w", name, err)
		}

		if err := json.Unmarshal(b, val.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("inertiaclient: failed to decode prop %q into %s: %w", name, field.Name, err)
		}
	}

	return nil
}

// decodePage decodes a page payload. The props map is never nil.
func decodePage(b []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to decode page: %w", err)
	}

	if page.Component == "" {
		return nil, errors.New("inertiaclient: failed to decode page: missing component")
	}

	if page.Props == nil {
		page.Props = inertiavalue.NewMap()
	}

	return &page, nil
}
