package models

// RequestKind discriminates the two provisioning cases.
type RequestKind int

const (
	// KindScaffold provisions a single scaffold into one directory.
	KindScaffold RequestKind = iota + 1
	// KindTemplate provisions every child of a custom template into its own
	// sub-directory.
	KindTemplate
)

// String returns the kind name used in logs.
func (k RequestKind) String() string {
	switch k {
	case KindScaffold:
		return "scaffold"
	case KindTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// ProvisionRequest is transient and constructed per invocation. Use
// NewScaffoldRequest or NewTemplateRequest; the zero value is invalid.
type ProvisionRequest struct {
	kind     RequestKind
	scaffold ScaffoldDefinition
	template CustomTemplate

	// BasePath is the target directory.
	BasePath string
	// Label is the human-readable name shown in progress and messages.
	Label string
}

// NewScaffoldRequest builds a single-scaffold request.
func NewScaffoldRequest(s ScaffoldDefinition, basePath, label string) ProvisionRequest {
	if label == "" {
		label = s.Label
	}
	return ProvisionRequest{kind: KindScaffold, scaffold: s, BasePath: basePath, Label: label}
}

// NewTemplateRequest builds a custom-template request.
func NewTemplateRequest(t CustomTemplate, basePath, label string) ProvisionRequest {
	if label == "" {
		label = t.Name
	}
	return ProvisionRequest{kind: KindTemplate, template: t.Clone(), BasePath: basePath, Label: label}
}

// Kind reports which case the request holds.
func (r ProvisionRequest) Kind() RequestKind {
	return r.kind
}

// Scaffold returns the scaffold case. ok is false for template requests.
func (r ProvisionRequest) Scaffold() (ScaffoldDefinition, bool) {
	return r.scaffold, r.kind == KindScaffold
}

// Template returns the template case. ok is false for scaffold requests.
func (r ProvisionRequest) Template() (CustomTemplate, bool) {
	return r.template, r.kind == KindTemplate
}

// ProvisionProgress is one progress report: the percent increment for the
// unit of work just completed and a status line.
type ProvisionProgress struct {
	Increment float64
	Message   string
}
