package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

// ErrMalformedReply is returned when the model reply has no usable mapping.
var ErrMalformedReply = errors.New("malformed analysis reply")

const defaultSampleRows = 10

// RemoteAnalyzer asks a completion model to choose the column mapping. The
// model never produces row values: mapped data always comes from
// NormalizeRows over the source cells.
type RemoteAnalyzer struct {
	completer  llm.Completer
	sampleRows int
	timeout    time.Duration
}

// NewRemoteAnalyzer wires a completer. A nil completer makes every call fail
// with llm.ErrNotConfigured.
func NewRemoteAnalyzer(completer llm.Completer, sampleRows int, timeout time.Duration) *RemoteAnalyzer {
	if sampleRows <= 0 {
		sampleRows = defaultSampleRows
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteAnalyzer{completer: completer, sampleRows: sampleRows, timeout: timeout}
}

// Analyze performs one remote round trip.
func (r *RemoteAnalyzer) Analyze(ctx context.Context, s sheet.RawSheet) (Result, error) {
	if r == nil || r.completer == nil {
		return Result{}, llm.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.completer.Complete(ctx, BuildPrompt(s, r.sampleRows))
	if err != nil {
		return Result{}, err
	}
	return ParseReply(s, reply)
}

// BuildPrompt renders the instructions, headers and sample rows.
func BuildPrompt(s sheet.RawSheet, sampleRows int) string {
	var b strings.Builder
	b.WriteString("You are mapping spreadsheet columns onto test case fields.\n")
	b.WriteString("Only decide which column feeds which field. Never rewrite, translate, summarise or invent cell values; ")
	b.WriteString("the importer copies the original cells verbatim.\n\n")

	if s.Name != "" {
		fmt.Fprintf(&b, "Sheet: %q\n", s.Name)
	}
	fmt.Fprintf(&b, "Total data rows: %d\n\n", len(s.Rows))

	b.WriteString("Headers (index: text):\n")
	for i, h := range s.Headers {
		fmt.Fprintf(&b, "  %d: %q\n", i, h)
	}

	n := len(s.Rows)
	if n > sampleRows {
		n = sampleRows
	}
	sample, _ := json.Marshal(s.Rows[:n])
	fmt.Fprintf(&b, "\nFirst %d rows as JSON:\n%s\n\n", n, sample)

	b.WriteString("Target fields:\n")
	b.WriteString("  name (required), description, priority (HIGH|MEDIUM|LOW), status (PENDING|PASSED|FAILED|BLOCKED),\n")
	b.WriteString("  testCaseDocUrl, testResultUrl, jiraUrl\n")
	b.WriteString("If the sheet has separate pass and fail columns, report their indices in statusMapping instead of mapping a status column.\n\n")

	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{
  "columnMapping": {"<column index>": "<field>"},
  "statusMapping": {"hasPassColumn": false, "passColumnIndex": null, "hasFailColumn": false, "failColumnIndex": null},
  "feedback": ["<short explanation>"],
  "warnings": ["<problems a reviewer should check>"],
  "confidence": "HIGH|MEDIUM|LOW"
}`)
	b.WriteString("\n")
	return b.String()
}

type remoteReply struct {
	ColumnMapping map[string]string `json:"columnMapping"`
	StatusMapping *struct {
		PassColumnIndex *int `json:"passColumnIndex"`
		FailColumnIndex *int `json:"failColumnIndex"`
	} `json:"statusMapping"`
	Feedback   []string `json:"feedback"`
	Warnings   []string `json:"warnings"`
	Confidence string   `json:"confidence"`
}

// ParseReply validates a model reply against s and builds the Result.
// Entries naming unknown fields or columns outside the header range are
// dropped with a warning; a reply left without any entry is malformed.
func ParseReply(s sheet.RawSheet, reply string) (Result, error) {
	var decoded remoteReply
	if err := json.Unmarshal([]byte(extractJSON(reply)), &decoded); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	var warnings []string
	mapping := make(ColumnMapping, len(decoded.ColumnMapping))
	keys := make([]string, 0, len(decoded.ColumnMapping))
	for key := range decoded.ColumnMapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := decoded.ColumnMapping[key]
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 0 || idx >= len(s.Headers) {
			warnings = append(warnings, fmt.Sprintf("Ignored suggested mapping for unknown column %q", key))
			continue
		}
		field := Field(strings.TrimSpace(value))
		if !field.Valid() {
			warnings = append(warnings, fmt.Sprintf("Ignored suggested mapping of column %s to unknown field %q", headerLabel(s.Headers, idx), value))
			continue
		}
		mapping[idx] = field
	}
	if len(mapping) == 0 {
		return Result{}, fmt.Errorf("%w: no usable column mapping", ErrMalformedReply)
	}

	var policy StatusPolicy
	if decoded.StatusMapping != nil {
		if idx := decoded.StatusMapping.PassColumnIndex; idx != nil {
			if *idx >= 0 && *idx < len(s.Headers) {
				policy.PassColumnIndex, policy.HasPassColumn = intPtr(*idx), true
			} else {
				warnings = append(warnings, fmt.Sprintf("Ignored suggested pass column #%d", *idx))
			}
		}
		if idx := decoded.StatusMapping.FailColumnIndex; idx != nil {
			if *idx >= 0 && *idx < len(s.Headers) {
				policy.FailColumnIndex, policy.HasFailColumn = intPtr(*idx), true
			} else {
				warnings = append(warnings, fmt.Sprintf("Ignored suggested fail column #%d", *idx))
			}
		}
	}

	confidence := Confidence(strings.ToUpper(strings.TrimSpace(decoded.Confidence)))
	if !confidence.Valid() {
		confidence = localConfidence(mapping)
	}

	feedback := nonEmpty(decoded.Feedback)
	warnings = append(warnings, nonEmpty(decoded.Warnings)...)

	return buildResult(s, mapping, policy, SourceRemote, feedback, warnings, confidence), nil
}

// extractJSON strips a ```json fence or surrounding prose from a reply.
func extractJSON(reply string) string {
	text := strings.TrimSpace(reply)
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
