package logger

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/josephlewis42/cicada/core/shell"
)

// Report holds statistics about the recorded history.
type Report struct {
	LogEntries int `json:"log_entries"`

	Command CommandReport `json:"command_report"`
	Failure FailureReport `json:"failure_report"`
	Timing  TimingReport  `json:"timing_report"`
}

// Update adds an entry to the report, it can be passed to ReadJSONLinesLog.
func (r *Report) Update(he *HistoryEntry) {
	r.LogEntries++

	list, err := shell.ParseList(he.Command, "")
	if err != nil {
		r.Failure.SyntaxErrors++
		return
	}

	var first string
	for _, item := range list.Items {
		r.Command.update(item.Pipeline)
		if first == "" {
			first = item.Pipeline.Commands[0].Name
		}
	}

	r.Failure.update(first, he.ExitStatus)
	r.Timing.update(he)
}

type CommandReport struct {
	// Names of the programs and builtins run, one per stage.
	CommandNames StrCounter `json:"command_names"`
	// Number of stages in each pipeline.
	PipelineLengths StrCounter `json:"pipeline_lengths"`
	// Number of pipelines started in the background.
	Background int `json:"background"`
}

func (r *CommandReport) update(p *shell.Pipeline) {
	for _, cmd := range p.Commands {
		r.CommandNames.Increment(cmd.Name)
	}
	r.PipelineLengths.Increment(strconv.Itoa(len(p.Commands)))
	if p.Background {
		r.Background++
	}
}

type FailureReport struct {
	ExitStatuses   StrCounter   `json:"exit_statuses"`
	FailedCommands *PathCounter `json:"failed_commands"`
	SyntaxErrors   int          `json:"syntax_errors"`
}

func (r *FailureReport) update(command string, status int) {
	if r.FailedCommands == nil {
		r.FailedCommands = NewPathCounter("command", "status")
	}

	r.ExitStatuses.Increment(strconv.Itoa(status))
	if status != 0 {
		r.FailedCommands.Increment(command, strconv.Itoa(status))
	}
}

type TimingReport struct {
	TotalSeconds   float64 `json:"total_seconds"`
	Slowest        string  `json:"slowest,omitempty"`
	SlowestSeconds float64 `json:"slowest_seconds"`
}

func (r *TimingReport) update(he *HistoryEntry) {
	seconds := he.Duration.Seconds()
	r.TotalSeconds += seconds
	if seconds > r.SlowestSeconds {
		r.Slowest = he.Command
		r.SlowestSeconds = seconds
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// MarshalJSON implements json.Marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings, each named by a column.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given tuple, which must have one value per column.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements json.Marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
