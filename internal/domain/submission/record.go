package submission

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// StatusPrivate is the only status a captured record ever has.
const StatusPrivate = "private"

// Value is a sanitized attribute value: one string, or an ordered list for
// multi-value fields such as checkbox groups.
type Value struct {
	Items []string
	Multi bool
}

func Single(s string) Value {
	return Value{Items: []string{s}}
}

func List(items ...string) Value {
	cloned := make([]string, len(items))
	copy(cloned, items)
	return Value{Items: cloned, Multi: true}
}

// String renders the value the way summaries and CSV cells show it.
func (v Value) String() string {
	return strings.Join(v.Items, ", ")
}

func (v Value) IsEmpty() bool {
	for _, item := range v.Items {
		if item != "" {
			return false
		}
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Multi {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	if len(v.Items) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(v.Items[0])
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = Single(single)
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.New("attribute value must be a string or an array of strings")
	}
	*v = List(items...)
	return nil
}

// Draft is a normalized submission that has not been stored yet.
type Draft struct {
	FormID     string
	FormTitle  string
	Title      string
	Summary    string
	Status     string
	Attributes map[string]Value
	Files      map[string]string
}

// Record is a stored submission. ID and CreatedAt are assigned by the store.
type Record struct {
	ID        uint64
	CreatedAt time.Time
	Draft
}
