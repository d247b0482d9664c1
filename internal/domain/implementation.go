package domain

// FileAction describes what the implementer did to a file.
type FileAction string

const (
	ActionCreate FileAction = "create"
	ActionModify FileAction = "modify"
	ActionDelete FileAction = "delete"
)

// FileChange records one file touched by the Implement stage.
type FileChange struct {
	Path    string     `json:"path"`
	Action  FileAction `json:"action"`
	Summary string     `json:"summary"`
}

// ImplementResult is the structured output of the Implement stage.
type ImplementResult struct {
	ChangedFiles      []FileChange `json:"changedFiles"`
	AddedDependencies []string     `json:"addedDependencies"`
	Notes             []string     `json:"notes"`
}
