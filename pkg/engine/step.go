package engine

import "context"

// Provisioning step names, in forward execution order.
const (
	StepCreateDirectory = "create_directory"
	StepCreateDatabase  = "create_database"
	StepCreateDBUser    = "create_database_user"
	StepInstallCMS      = "install_cms"
	StepWriteHtaccess   = "write_htaccess"
	StepWriteVhost      = "write_vhost"
	StepValidateConfig  = "validate_config"
	StepEnableSite      = "enable_site"
	StepAddHostsEntry   = "add_hosts_entry"
	StepSetPermissions  = "set_permissions"
)

// Removal step names, in fixed removal order.
const (
	StepDisableSite      = "disable_site"
	StepRemoveVhost      = "remove_vhost"
	StepRemoveDirectory  = "remove_directory"
	StepDropDatabase     = "drop_database"
	StepDropDBUser       = "drop_database_user"
	StepRemoveHostsEntry = "remove_hosts_entry"
	StepReloadWebServer  = "reload_webserver"
)

// Step is one unit of work in a provisioning transaction: a forward action
// that mutates exactly one external resource, and an optional compensating
// action that reverses it. The ordered step slice doubles as the
// compensation stack; completed steps are compensated in strict reverse
// order when a later step fails.
type Step struct {
	// Name identifies the step in logs, events, and error context.
	Name string

	// Resource names the external resource the step mutates.
	Resource string

	// FailKind overrides the error classification when the forward action
	// fails. Zero value means KindAdapter.
	FailKind ErrorKind

	// Run is the forward action.
	Run func(ctx context.Context) error

	// Compensate reverses the forward action. Nil when the step's effects
	// are covered by another step's compensation (for example, files inside
	// a directory that will be deleted recursively).
	Compensate func(ctx context.Context) error

	completed bool
}

// Completed reports whether the forward action finished successfully.
func (s *Step) Completed() bool { return s.completed }
