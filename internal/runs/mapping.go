package runs

import (
	"encoding/json"
	"fmt"

	"github.com/mwhitfield/assay/pkg/repository"
)

// selectRuns orders newest-first by creation time, ties broken by the
// insertion sequence column, never by id comparison.
const selectRuns = `
	SELECT payload FROM assessment_runs
	WHERE submission_id = $1
	ORDER BY created_at DESC, seq DESC`

func marshalRun(run *AssessmentRun) ([]byte, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	return payload, nil
}

func scanRun(s repository.Scanner) (*AssessmentRun, error) {
	var payload []byte
	if err := s.Scan(&payload); err != nil {
		return nil, err
	}

	var run AssessmentRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run payload: %w", err)
	}
	return &run, nil
}
