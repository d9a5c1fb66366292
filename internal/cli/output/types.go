package output

// StatementInfo describes one statement in JSON output.
type StatementInfo struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	File       string   `json:"file"`
	Position   int      `json:"position"`
	DependsOn  []string `json:"depends_on"`
	Dependents []string `json:"dependents,omitempty"`
}

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	OK         bool            `json:"ok"`
	Files      int             `json:"files"`
	Statements int             `json:"statements"`
	Order      []StatementInfo `json:"order,omitempty"`
	Dangling   []string        `json:"dangling"`
	Error      *ErrorOutput    `json:"error,omitempty"`
}

// ErrorOutput is a merge failure in JSON output.
type ErrorOutput struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// GraphLevel is one execution level in JSON output.
type GraphLevel struct {
	Level      int             `json:"level"`
	Statements []StatementInfo `json:"statements"`
}

// GraphOutput is the JSON output of the graph command.
type GraphOutput struct {
	Levels          []GraphLevel `json:"levels"`
	TotalStatements int          `json:"total_statements"`
	TotalEdges      int          `json:"total_edges"`
	Dangling        []string     `json:"dangling"`
}

// VerifyOutput is the JSON output of the verify command.
type VerifyOutput struct {
	OK         bool   `json:"ok"`
	Driver     string `json:"driver"`
	Executed   int    `json:"executed"`
	Total      int    `json:"total"`
	DurationMS int64  `json:"duration_ms"`
	Failed     string `json:"failed,omitempty"`
	Statement  string `json:"statement,omitempty"`
	File       string `json:"file,omitempty"`
}

// VersionOutput is the JSON output of the version command.
type VersionOutput struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	OS        string   `json:"os"`
	Arch      string   `json:"arch"`
	Dialects  []string `json:"dialects"`
	Drivers   []string `json:"verify_drivers"`
}
