package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestProvisionSuccess(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	info, err := f.prov.Provision(context.Background(), req)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	if info.Domain != "myblog.localhost" {
		t.Errorf("domain = %s, want myblog.localhost", info.Domain)
	}
	if info.URL != "http://myblog.localhost" {
		t.Errorf("url = %s, want http://myblog.localhost", info.URL)
	}
	if info.DocumentRoot != filepath.Join(testWebRoot, "myblog") {
		t.Errorf("document root = %s", info.DocumentRoot)
	}

	wantOps := []string{
		"fs.CreateDir",
		"db.CreateDatabase",
		"db.CreateUser", "db.GrantAll",
		"cms.Download", "cms.WriteConfig", "cms.Install",
		"fs.WriteFile",
		"web.WriteVhostConfig",
		"web.ValidateConfig",
		"web.Enable", "web.Reload",
		"web.AddHostsEntry",
		"fs.SetOwnerAndMode",
	}
	if !reflect.DeepEqual(f.env.ops, wantOps) {
		t.Errorf("operation order:\ngot  %v\nwant %v", f.env.ops, wantOps)
	}

	if !f.fs.dirs[info.DocumentRoot] || !f.db.databases[req.DBName] ||
		!f.db.users[req.DBUser] || !f.web.vhosts[req.SiteID] ||
		!f.web.enabled[req.SiteID] || !f.web.hosts[req.SiteID] {
		t.Error("expected all site resources to be present after provision")
	}

	htaccess := string(f.fs.files[filepath.Join(info.DocumentRoot, ".htaccess")])
	for _, want := range []string{"RewriteEngine On", "RewriteRule . /index.php [L]"} {
		if !strings.Contains(htaccess, want) {
			t.Errorf(".htaccess missing %q:\n%s", want, htaccess)
		}
	}

	if len(f.rec.statuses) != 1 || f.rec.statuses[0] != "succeeded" {
		t.Errorf("recorded statuses = %v, want [succeeded]", f.rec.statuses)
	}
}

func TestProvisionValidationFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SiteRequest)
	}{
		{name: "reserved site id", mutate: func(r *SiteRequest) { r.SiteID = "admin" }},
		{name: "reserved mixed case", mutate: func(r *SiteRequest) { r.SiteID = "WordPress" }},
		{name: "uppercase site id", mutate: func(r *SiteRequest) { r.SiteID = "MyBlog" }},
		{name: "leading hyphen", mutate: func(r *SiteRequest) { r.SiteID = "-blog" }},
		{name: "short password", mutate: func(r *SiteRequest) { r.AdminPassword = "short" }},
		{name: "bad email", mutate: func(r *SiteRequest) { r.AdminEmail = "not-an-email" }},
		{name: "db name with hyphen", mutate: func(r *SiteRequest) { r.DBName = "my-db" }},
		{name: "empty db user", mutate: func(r *SiteRequest) { r.DBUser = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := f.prov.Provision(context.Background(), req)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(f.env.ops) != 0 {
				t.Errorf("validation failure must not touch resources, ran %v", f.env.ops)
			}
		})
	}
}

func TestProvisionConflictNoSideEffects(t *testing.T) {
	tests := []struct {
		name     string
		seed     func(*fixture, SiteRequest)
		resource string
	}{
		{
			name: "directory occupied",
			seed: func(f *fixture, req SiteRequest) {
				docRoot := filepath.Join(testWebRoot, req.SiteID)
				f.fs.dirs[docRoot] = true
				f.fs.files[filepath.Join(docRoot, "index.html")] = []byte("old site")
			},
			resource: ResourceDirectory,
		},
		{
			name:     "vhost exists",
			seed:     func(f *fixture, req SiteRequest) { f.web.vhosts[req.SiteID] = true },
			resource: ResourceVhost,
		},
		{
			name:     "hosts entry exists",
			seed:     func(f *fixture, req SiteRequest) { f.web.hosts[req.SiteID] = true },
			resource: ResourceHosts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.seed(f, req)

			_, err := f.prov.Provision(context.Background(), req)
			if !IsConflict(err) {
				t.Fatalf("expected conflict error, got %v", err)
			}
			var siteErr *SiteError
			if errors.As(err, &siteErr) && siteErr.Resource != tt.resource {
				t.Errorf("conflict resource = %s, want %s", siteErr.Resource, tt.resource)
			}
			if len(f.env.ops) != 0 {
				t.Errorf("conflict must not touch resources, ran %v", f.env.ops)
			}
		})
	}
}

func TestProvisionEmptyDirectoryIsNotConflict(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	// An empty leftover directory is reusable, not occupied.
	f.fs.dirs[filepath.Join(testWebRoot, req.SiteID)] = true

	if _, err := f.prov.Provision(context.Background(), req); err != nil {
		t.Fatalf("provision over empty directory failed: %v", err)
	}
}

func TestProvisionCollectsAllMissingDependencies(t *testing.T) {
	f := newFixture(t)
	f.web.running = false
	f.db.pingErr = fmt.Errorf("connection refused")
	f.cms.callableErr = fmt.Errorf("wp not found")

	_, err := f.prov.Provision(context.Background(), validRequest())
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	var siteErr *SiteError
	if !errors.As(err, &siteErr) {
		t.Fatal("expected SiteError")
	}
	missing, ok := siteErr.Details["missing"].([]string)
	if !ok || len(missing) != 3 {
		t.Errorf("expected all 3 missing dependencies reported, got %v", siteErr.Details["missing"])
	}
	if len(f.env.ops) != 0 {
		t.Errorf("dependency failure must not touch resources, ran %v", f.env.ops)
	}
}

func TestProvisionRollsBackOnEachStepFailure(t *testing.T) {
	tests := []struct {
		name     string
		failOp   string
		wantStep string
		wantKind func(error) bool
	}{
		{name: "create directory", failOp: "fs.CreateDir", wantStep: StepCreateDirectory, wantKind: IsAdapter},
		{name: "create database", failOp: "db.CreateDatabase", wantStep: StepCreateDatabase, wantKind: IsAdapter},
		{name: "create user", failOp: "db.CreateUser", wantStep: StepCreateDBUser, wantKind: IsAdapter},
		{name: "grant", failOp: "db.GrantAll", wantStep: StepCreateDBUser, wantKind: IsAdapter},
		{name: "download", failOp: "cms.Download", wantStep: StepInstallCMS, wantKind: IsAdapter},
		{name: "install", failOp: "cms.Install", wantStep: StepInstallCMS, wantKind: IsAdapter},
		{name: "htaccess", failOp: "fs.WriteFile", wantStep: StepWriteHtaccess, wantKind: IsAdapter},
		{name: "write vhost", failOp: "web.WriteVhostConfig", wantStep: StepWriteVhost, wantKind: IsAdapter},
		{name: "configtest", failOp: "web.ValidateConfig", wantStep: StepValidateConfig, wantKind: IsConfigInvalid},
		{name: "enable", failOp: "web.Enable", wantStep: StepEnableSite, wantKind: IsAdapter},
		{name: "hosts entry", failOp: "web.AddHostsEntry", wantStep: StepAddHostsEntry, wantKind: IsAdapter},
		{name: "permissions", failOp: "fs.SetOwnerAndMode", wantStep: StepSetPermissions, wantKind: IsAdapter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			f.env.fail[tt.failOp] = fmt.Errorf("injected failure")

			_, err := f.prov.Provision(context.Background(), req)
			if err == nil {
				t.Fatal("expected provisioning to fail")
			}
			if !tt.wantKind(err) {
				t.Errorf("wrong error kind: %v", err)
			}
			var siteErr *SiteError
			if !errors.As(err, &siteErr) {
				t.Fatal("expected SiteError")
			}
			if siteErr.Step != tt.wantStep {
				t.Errorf("error step = %s, want %s", siteErr.Step, tt.wantStep)
			}

			// Whatever the failure point, no trace of the site may remain.
			assertNoSiteResources(t, f, req)

			if len(f.rec.statuses) != 1 || f.rec.statuses[0] != "rolled_back" {
				t.Errorf("recorded statuses = %v, want [rolled_back]", f.rec.statuses)
			}
		})
	}
}

func TestProvisionCompensatesInReverseOrder(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	f.env.fail["web.AddHostsEntry"] = fmt.Errorf("injected failure")

	_, err := f.prov.Provision(context.Background(), req)
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}

	// Everything after the failed forward op must be the unwinding, newest
	// completed step first.
	wantTail := []string{
		"web.AddHostsEntry",
		"web.Disable", "web.Reload",
		"web.RemoveVhostConfig",
		"db.DropUser",
		"db.DropDatabase",
		"fs.DeleteDir",
	}
	got := f.env.opsFrom(len(f.env.ops) - len(wantTail))
	if !reflect.DeepEqual(got, wantTail) {
		t.Errorf("compensation order:\ngot  %v\nwant %v", got, wantTail)
	}

	var siteErr *SiteError
	if !errors.As(err, &siteErr) {
		t.Fatal("expected SiteError")
	}
	compensated, ok := siteErr.Details["compensated_steps"].([]string)
	if !ok {
		t.Fatal("expected compensated_steps detail")
	}
	wantSteps := []string{StepEnableSite, StepWriteVhost, StepCreateDBUser, StepCreateDatabase, StepCreateDirectory}
	if !reflect.DeepEqual(compensated, wantSteps) {
		t.Errorf("compensated steps:\ngot  %v\nwant %v", compensated, wantSteps)
	}
}

func TestProvisionGrantFailureDropsHalfCreatedUser(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	f.env.fail["db.GrantAll"] = fmt.Errorf("injected failure")

	_, err := f.prov.Provision(context.Background(), req)
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}

	// The user created inside the failed step is dropped by the step itself,
	// then the earlier steps unwind.
	wantTail := []string{
		"db.CreateUser", "db.GrantAll", "db.DropUser",
		"db.DropDatabase", "fs.DeleteDir",
	}
	got := f.env.opsFrom(len(f.env.ops) - len(wantTail))
	if !reflect.DeepEqual(got, wantTail) {
		t.Errorf("unwinding after grant failure:\ngot  %v\nwant %v", got, wantTail)
	}
	assertNoSiteResources(t, f, req)
}

func TestProvisionInterruptedBeforeFirstStep(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.prov.Provision(ctx, validRequest())
	if !IsAdapter(err) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	if len(f.env.ops) != 0 {
		t.Errorf("interrupted run must not touch resources, ran %v", f.env.ops)
	}
}

func TestProvisionInterruptedMidRunRollsBack(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel while the database step runs; the step completes, the next
	// iteration sees the cancellation and unwinds.
	f.env.hooks["db.CreateDatabase"] = cancel

	_, err := f.prov.Provision(ctx, req)
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}

	wantOps := []string{
		"fs.CreateDir",
		"db.CreateDatabase",
		"db.DropDatabase",
		"fs.DeleteDir",
	}
	if !reflect.DeepEqual(f.env.ops, wantOps) {
		t.Errorf("operations after interrupt:\ngot  %v\nwant %v", f.env.ops, wantOps)
	}
	assertNoSiteResources(t, f, req)
}

func TestProvisionCompensationFailureKeepsUnwinding(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	f.env.fail["web.AddHostsEntry"] = fmt.Errorf("injected failure")
	f.env.fail["db.DropUser"] = fmt.Errorf("drop refused")

	_, err := f.prov.Provision(context.Background(), req)
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}

	var siteErr *SiteError
	if !errors.As(err, &siteErr) {
		t.Fatal("expected SiteError")
	}
	// The original cause survives; the compensation failure is detail.
	if siteErr.Step != StepAddHostsEntry {
		t.Errorf("error step = %s, want %s", siteErr.Step, StepAddHostsEntry)
	}
	failures, ok := siteErr.Details["compensation_failures"].([]string)
	if !ok || len(failures) != 1 || failures[0] != StepCreateDBUser {
		t.Errorf("compensation_failures = %v, want [%s]", siteErr.Details["compensation_failures"], StepCreateDBUser)
	}

	// Steps below the stuck one still unwind.
	if f.db.databases[req.DBName] {
		t.Error("database should have been dropped despite user-drop failure")
	}
	if f.fs.dirs[filepath.Join(testWebRoot, req.SiteID)] {
		t.Error("directory should have been deleted despite user-drop failure")
	}

	if len(f.rec.statuses) != 1 || f.rec.statuses[0] != "failed" {
		t.Errorf("recorded statuses = %v, want [failed]", f.rec.statuses)
	}
}
