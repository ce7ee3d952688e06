package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the human-readable digest written next to result.json.
type Summary struct {
	SessionID    string    `yaml:"session_id"`
	GeneratedAt  time.Time `yaml:"generated_at"`
	Question     string    `yaml:"question"`
	TotalScore   int       `yaml:"total_score"`
	Grade        string    `yaml:"grade"`
	FaceScore    float64   `yaml:"face_score"`
	AIScore      *float64  `yaml:"ai_score"`
	UsedFallback bool      `yaml:"used_fallback"`
	Feedback     string    `yaml:"feedback"`
}

func mkSessionDir(outputsRoot, id string) (string, error) {
	dir := filepath.Join(outputsRoot, "session_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// persist writes result.json and summary.yaml under outputsRoot/session_<id>.
func persist(outputsRoot string, res Result) (string, error) {
	dir, err := mkSessionDir(outputsRoot, res.SessionID)
	if err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "result.json"), res); err != nil {
		return "", err
	}
	sum := Summary{
		SessionID:    res.SessionID,
		GeneratedAt:  time.Now(),
		Question:     res.Question,
		TotalScore:   res.TotalScore,
		Grade:        res.Grade,
		FaceScore:    res.FaceScore,
		AIScore:      res.AIScore,
		UsedFallback: res.UsedFallback,
		Feedback:     res.Feedback,
	}
	if err := writeYAML(filepath.Join(dir, "summary.yaml"), sum); err != nil {
		return "", err
	}
	return dir, nil
}
