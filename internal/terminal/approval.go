package terminal

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// ApprovalModel is the bubbletea model for the interactive plan approval
// gate. It renders the plan's tasks and risks and collects a yes/no
// decision: 'a'/'y' approves, 'r'/'n'/'q' rejects.
type ApprovalModel struct {
	plan     *domain.PlanResult
	cursor   int
	expanded map[int]bool
	approved bool
	decided  bool
}

// NewApproval creates an approval model for the given plan.
func NewApproval(plan *domain.PlanResult) ApprovalModel {
	return ApprovalModel{
		plan:     plan,
		expanded: make(map[int]bool),
	}
}

// Init implements tea.Model.
func (m ApprovalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ApprovalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.plan.Plan.Tasks)-1 {
			m.cursor++
		}
	case " ", "tab":
		m.expanded[m.cursor] = !m.expanded[m.cursor]
	case "a", "y", "enter":
		m.approved = true
		m.decided = true
		return m, tea.Quit
	case "r", "n", "q", "esc", "ctrl+c":
		m.approved = false
		m.decided = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m ApprovalModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%sProposed plan%s (complexity %d/10, %d tasks)\n\n",
		Color(Bold), Color(Reset), m.plan.Plan.Complexity, m.plan.TaskCount())

	for i, t := range m.plan.Plan.Tasks {
		marker := "  "
		if i == m.cursor {
			marker = Color(Cyan) + "> " + Color(Reset)
		}
		fmt.Fprintf(&b, "%s%s %s[%s/%s]%s\n", marker, t.Description,
			Color(Dim), t.Priority, t.Effort, Color(Reset))

		if m.expanded[i] {
			if len(t.Files) > 0 {
				fmt.Fprintf(&b, "      %sfiles: %s%s\n", Color(Dim), strings.Join(t.Files, ", "), Color(Reset))
			}
			if len(t.Dependencies) > 0 {
				fmt.Fprintf(&b, "      %sdepends on: %s%s\n", Color(Dim), strings.Join(t.Dependencies, ", "), Color(Reset))
			}
		}
	}

	if len(m.plan.Plan.Risks) > 0 {
		fmt.Fprintf(&b, "\n%sRisks%s\n", Color(Yellow), Color(Reset))
		for _, r := range m.plan.Plan.Risks {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}

	fmt.Fprintf(&b, "\n%s[a]pprove  [r]eject  [space] details  [↑/↓] navigate%s\n",
		Color(Dim), Color(Reset))

	return b.String()
}

// Approved returns the decision after the model has quit.
func (m ApprovalModel) Approved() bool {
	return m.decided && m.approved
}

// RunApproval displays the interactive approval UI and returns the user's
// decision. On a non-TTY it returns false: refusing to implement without an
// explicit approval is the safe default for scripted runs (use --yes).
func RunApproval(plan *domain.PlanResult) (bool, error) {
	if !IsStdoutTTY() {
		return false, fmt.Errorf("stdout is not a terminal; use --yes to approve non-interactively")
	}

	prog := tea.NewProgram(NewApproval(plan))
	final, err := prog.Run()
	if err != nil {
		return false, fmt.Errorf("approval UI failed: %w", err)
	}

	model, ok := final.(ApprovalModel)
	if !ok {
		return false, fmt.Errorf("unexpected approval model type %T", final)
	}
	return model.Approved(), nil
}
