package autosave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

type Address struct {
	Street       string `json:"street"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions"`
}

// Draft is the checkout form snapshot. The same type is used for partial
// updates: a nil field means "not supplied" and leaves the stored value alone,
// while a field sent as JSON null (or named in Without) clears it.
type Draft struct {
	IsHomeDelivery *bool             `json:"isHomeDelivery,omitempty"`
	PickupPointID  *string           `json:"pickupPointId,omitempty"`
	Address        *Address          `json:"address,omitempty"`
	PaymentMethod  *string           `json:"paymentMethod,omitempty"`
	PaymentDetails map[string]string `json:"paymentDetails,omitempty"`

	cleared fieldSet
}

// Field names a Draft field by its JSON key.
type Field string

const (
	FieldIsHomeDelivery Field = "isHomeDelivery"
	FieldPickupPointID  Field = "pickupPointId"
	FieldAddress        Field = "address"
	FieldPaymentMethod  Field = "paymentMethod"
	FieldPaymentDetails Field = "paymentDetails"
)

type fieldSet uint8

var fieldBits = map[Field]fieldSet{
	FieldIsHomeDelivery: 1 << 0,
	FieldPickupPointID:  1 << 1,
	FieldAddress:        1 << 2,
	FieldPaymentMethod:  1 << 3,
	FieldPaymentDetails: 1 << 4,
}

// Without returns a copy of d that, used as a patch, clears the named fields.
func (d Draft) Without(fields ...Field) Draft {
	out := d.Merge(Draft{})
	for _, f := range fields {
		out.unset(f)
		out.cleared |= fieldBits[f]
	}
	return out
}

// Clears reports whether d, used as a patch, clears field f.
func (d Draft) Clears(f Field) bool { return d.cleared&fieldBits[f] != 0 }

// UnmarshalJSON records keys sent as null so a patch can clear them. Unknown
// top-level keys are rejected.
func (d *Draft) UnmarshalJSON(b []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}

	var cleared fieldSet
	for k, v := range keys {
		bit, ok := fieldBits[Field(k)]
		if !ok {
			return fmt.Errorf("draft: unknown field %q", k)
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			cleared |= bit
		}
	}

	type plain Draft
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*d = Draft(p)
	d.cleared = cleared
	return nil
}

// Merge returns d with every field supplied by patch replacing d's and every
// field patch clears removed. Nested values are replaced whole, not merged.
// The result keeps d's clears for fields patch leaves alone, so merging two
// patches yields one equivalent patch.
func (d Draft) Merge(patch Draft) Draft {
	out := Draft{
		IsHomeDelivery: copyPtr(d.IsHomeDelivery),
		PickupPointID:  copyPtr(d.PickupPointID),
		Address:        copyPtr(d.Address),
		PaymentMethod:  copyPtr(d.PaymentMethod),
		PaymentDetails: maps.Clone(d.PaymentDetails),
		cleared:        d.cleared,
	}

	for f, bit := range fieldBits {
		switch {
		case patch.has(f):
			out.copyFrom(patch, f)
			out.cleared &^= bit
		case patch.cleared&bit != 0:
			out.unset(f)
			out.cleared |= bit
		}
	}
	return out
}

// IsEmpty reports whether d holds no values and clears nothing.
func (d Draft) IsEmpty() bool {
	return d.IsHomeDelivery == nil && d.PickupPointID == nil && d.Address == nil &&
		d.PaymentMethod == nil && d.PaymentDetails == nil && d.cleared == 0
}

func (d Draft) has(f Field) bool {
	switch f {
	case FieldIsHomeDelivery:
		return d.IsHomeDelivery != nil
	case FieldPickupPointID:
		return d.PickupPointID != nil
	case FieldAddress:
		return d.Address != nil
	case FieldPaymentMethod:
		return d.PaymentMethod != nil
	case FieldPaymentDetails:
		return d.PaymentDetails != nil
	}
	return false
}

func (d *Draft) unset(f Field) {
	switch f {
	case FieldIsHomeDelivery:
		d.IsHomeDelivery = nil
	case FieldPickupPointID:
		d.PickupPointID = nil
	case FieldAddress:
		d.Address = nil
	case FieldPaymentMethod:
		d.PaymentMethod = nil
	case FieldPaymentDetails:
		d.PaymentDetails = nil
	}
}

func (d *Draft) copyFrom(src Draft, f Field) {
	switch f {
	case FieldIsHomeDelivery:
		d.IsHomeDelivery = copyPtr(src.IsHomeDelivery)
	case FieldPickupPointID:
		d.PickupPointID = copyPtr(src.PickupPointID)
	case FieldAddress:
		d.Address = copyPtr(src.Address)
	case FieldPaymentMethod:
		d.PaymentMethod = copyPtr(src.PaymentMethod)
	case FieldPaymentDetails:
		d.PaymentDetails = maps.Clone(src.PaymentDetails)
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func decodeDraft(raw string) (Draft, error) {
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Draft{}, err
	}
	// A stored snapshot has no pending clears.
	d.cleared = 0
	return d, nil
}

func encodeDraft(d Draft) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
