package querycacheplugin

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// resultEnvelope is what the plugin stores per read: the rows plus the row count
// gorm reports, tagged with the destination type they were scanned into.
type resultEnvelope struct {
	dest         any
	RowsAffected int64
}

type encodedResult struct {
	Type         string          `json:"type"`
	Rows         json.RawMessage `json:"rows"`
	RowsAffected int64           `json:"rows_affected"`
}

func newResultEnvelope(dest any) *resultEnvelope {
	return &resultEnvelope{dest: dest}
}

func (e *resultEnvelope) MarshalJSON() ([]byte, error) {
	rows, err := json.Marshal(e.dest)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encodedResult{
		Type:         destType(e.dest),
		Rows:         rows,
		RowsAffected: e.RowsAffected,
	})
}

// UnmarshalJSON leaves the destination untouched unless the whole payload decodes.
func (e *resultEnvelope) UnmarshalJSON(data []byte) error {
	var encoded encodedResult
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if want := destType(e.dest); encoded.Type != want {
		return fmt.Errorf("cached rows are %s, destination is %s", encoded.Type, want)
	}

	rv := reflect.ValueOf(e.dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination %T is not a pointer", e.dest)
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(encoded.Rows, tmp.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(tmp.Elem())
	e.RowsAffected = encoded.RowsAffected
	return nil
}

// destType names the destination type including the package path of its element type.
func destType(dest any) string {
	t := reflect.TypeOf(dest)
	if t == nil {
		return ""
	}
	elem := t
	for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Slice || elem.Kind() == reflect.Array {
		elem = elem.Elem()
	}
	if elem.PkgPath() == "" {
		return t.String()
	}
	return elem.PkgPath() + ":" + t.String()
}
