package bench

import (
	"encoding/json"
	"io"
	"time"

	"github.com/danmuck/spi2wb/internal/bus"
	"github.com/danmuck/spi2wb/internal/protocol"
	"github.com/danmuck/spi2wb/internal/verify"
	"github.com/pelletier/go-toml/v2"
)

// Report is the outcome of one scenario run. Verified is false when the
// bench had no bus log to check.
type Report struct {
	Scenario   string            `json:"scenario" toml:"scenario"`
	Mode       string            `json:"mode" toml:"mode"`
	Result     string            `json:"result" toml:"result"`
	Started    time.Time         `json:"started" toml:"started"`
	Elapsed    string            `json:"elapsed" toml:"elapsed"`
	Frames     uint64            `json:"frames" toml:"frames"`
	Bytes      uint64            `json:"bytes" toml:"bytes"`
	Verified   bool              `json:"verified" toml:"verified"`
	Err        string            `json:"error,omitempty" toml:"error,omitempty"`
	Reads      []StepRead        `json:"reads,omitempty" toml:"reads,omitempty"`
	Readback   []StepMismatch    `json:"readback,omitempty" toml:"readback,omitempty"`
	Mismatches []verify.Mismatch `json:"mismatches,omitempty" toml:"mismatches,omitempty"`
	Observed   []bus.Transaction `json:"observed,omitempty" toml:"observed,omitempty"`
}

// StepRead holds the words a read step returned.
type StepRead struct {
	Step    int             `json:"step" toml:"step"`
	Address uint16          `json:"address" toml:"address"`
	Values  []protocol.Word `json:"values" toml:"values"`
}

// StepMismatch is a read-back finding tied to the step that produced it.
type StepMismatch struct {
	Step int `json:"step" toml:"step"`
	verify.Mismatch
}

func (r Report) Passed() bool {
	return r.Err == "" && len(r.Mismatches) == 0 && len(r.Readback) == 0
}

func (r Report) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(r)
}

func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Summary is the file form of several reports.
type Summary struct {
	Passed  int      `json:"passed" toml:"passed"`
	Failed  int      `json:"failed" toml:"failed"`
	Reports []Report `json:"reports" toml:"report"`
}

func Summarize(reports []Report) Summary {
	s := Summary{Reports: reports}
	for _, r := range reports {
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

func (s Summary) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

func (s Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
