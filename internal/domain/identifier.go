package domain

// Field names one lookup identifier on the customer form.
type Field string

const (
	FieldFullName      Field = "full_name"
	FieldMeterNumber   Field = "meter_number"
	FieldAccountNumber Field = "account_number"
	FieldNationalID    Field = "national_id"
	FieldPhone         Field = "phone"
	FieldUnitCode      Field = "unit_code"
	FieldEmail         Field = "email"
)

// Fields lists every identifier field in form order.
var Fields = []Field{
	FieldFullName,
	FieldMeterNumber,
	FieldAccountNumber,
	FieldNationalID,
	FieldPhone,
	FieldUnitCode,
	FieldEmail,
}

// Identifiers maps identifier fields to normalized values. Missing keys and
// empty strings are equivalent.
type Identifiers map[Field]string

// Get returns the value for f, or "" when absent.
func (q Identifiers) Get(f Field) string {
	if q == nil {
		return ""
	}
	return q[f]
}

// Has reports whether f carries a non-empty value.
func (q Identifiers) Has(f Field) bool {
	return q.Get(f) != ""
}

// IsEmpty reports whether no field carries a value.
func (q Identifiers) IsEmpty() bool {
	for _, f := range Fields {
		if q.Has(f) {
			return false
		}
	}
	return true
}

// Clone returns a copy containing every field, empty ones included.
func (q Identifiers) Clone() Identifiers {
	out := make(Identifiers, len(Fields))
	for _, f := range Fields {
		out[f] = q.Get(f)
	}
	return out
}

// Kind classifies a lookup by the identifier that best describes it.
type Kind string

const (
	KindMeter      Kind = "meter"
	KindAccount    Kind = "account"
	KindNationalID Kind = "national-id"
	KindPhone      Kind = "phone"
	KindUnit       Kind = "unit"
	KindEmail      Kind = "email"
	KindName       Kind = "name"
	KindUnknown    Kind = "unknown"
)

// Kinds lists all kinds, used to validate history filters.
var Kinds = []Kind{KindMeter, KindAccount, KindNationalID, KindPhone, KindUnit, KindEmail, KindName, KindUnknown}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// kindPriority is evaluated top to bottom; the first populated field wins.
var kindPriority = []struct {
	kind  Kind
	field Field
}{
	{KindMeter, FieldMeterNumber},
	{KindAccount, FieldAccountNumber},
	{KindNationalID, FieldNationalID},
	{KindPhone, FieldPhone},
	{KindUnit, FieldUnitCode},
	{KindEmail, FieldEmail},
	{KindName, FieldFullName},
}

// DetectKind returns the detected kind and its primary value. With no
// populated field it returns KindUnknown and "".
func DetectKind(q Identifiers) (Kind, string) {
	for _, p := range kindPriority {
		if v := q.Get(p.field); v != "" {
			return p.kind, v
		}
	}
	return KindUnknown, ""
}
