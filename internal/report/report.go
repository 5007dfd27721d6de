// Package report renders the outcome of a library lookup for the external
// caller and for humans.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bagtoad/nativelib/internal/errors"
	"github.com/bagtoad/nativelib/internal/locator"
)

// Failure is the structured failure handed to the external caller.
type Failure struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Response is either a directory path or a failure, never both.
type Response struct {
	Path  string   `json:"path,omitempty" yaml:"path,omitempty"`
	Error *Failure `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewResponse builds the caller-facing response for a Locate outcome.
func NewResponse(res *locator.Result, err error) Response {
	if err != nil {
		return Response{Error: &Failure{Code: errors.Code(err), Message: errors.Message(err)}}
	}
	return Response{Path: res.Dir}
}

// Write encodes resp to w as text, json or yaml.
func Write(w io.Writer, format string, resp Response) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		if resp.Error != nil {
			_, err := fmt.Fprintf(w, "%s: %s\n", resp.Error.Code, resp.Error.Message)
			return err
		}
		_, err := fmt.Fprintln(w, resp.Path)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintTrace writes one line per strategy in chain order.
func PrintTrace(w io.Writer, res *locator.Result) {
	if res == nil {
		return
	}

	fmt.Fprintln(w, "=== Lookup trace ===")
	for i, p := range res.Probes {
		line := fmt.Sprintf("%d. %-8s %-13s", i+1, p.Step, p.Outcome)
		if p.Dir != "" {
			line += " " + p.Dir
		}
		if p.Err != nil {
			line += fmt.Sprintf(" (%v)", p.Err)
		}
		fmt.Fprintln(w, line)
	}

	if winner, ok := res.Winner(); ok {
		fmt.Fprintf(w, "Resolved by %s: %s\n", winner.Step, winner.Dir)
	} else {
		fmt.Fprintln(w, "Not resolved")
	}
}
