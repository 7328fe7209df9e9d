package rankprograms

import (
	"encoding/json"
	"strconv"
)

func jsonUnmarshal(doc string, v interface{}) error {
	return json.Unmarshal([]byte(doc), v)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
