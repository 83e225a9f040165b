// package to renders values for terminal display.
package to

import (
	"io"

	"github.com/go-json-experiment/json"
)

// JSON writes the given object to w as indented JSON.
// If obj is a nil slice, an empty JSON array is written.
// If obj is a nil map, an empty JSON object is written.
// If obj is a nil pointer, a null is written.
func JSON(w io.Writer, obj any) error {
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{
		Indent: "  ",
	}, w, obj)
}
