package importer

import "strings"

// DetectPassFail finds dedicated pass and fail columns. Only an exact,
// case-insensitive header of "pass"/"passed" or "fail"/"failed" qualifies;
// the first match of each kind wins.
func DetectPassFail(headers []string) StatusPolicy {
	var policy StatusPolicy
	for idx, header := range headers {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "pass", "passed":
			if policy.PassColumnIndex == nil {
				policy.PassColumnIndex = intPtr(idx)
				policy.HasPassColumn = true
			}
		case "fail", "failed":
			if policy.FailColumnIndex == nil {
				policy.FailColumnIndex = intPtr(idx)
				policy.HasFailColumn = true
			}
		}
	}
	return policy
}

func intPtr(v int) *int { return &v }
