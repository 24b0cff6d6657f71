package engine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testWebRoot = "/srv/www"

// fakeEnv is shared by all fake adapters: a single ordered log of mutating
// operations, per-operation error injection, and per-operation hooks. The
// shared log is what lets tests assert compensation ordering across adapters.
type fakeEnv struct {
	ops   []string
	fail  map[string]error
	hooks map[string]func()
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{fail: map[string]error{}, hooks: map[string]func(){}}
}

func (e *fakeEnv) do(op string) error {
	if h := e.hooks[op]; h != nil {
		h()
	}
	e.ops = append(e.ops, op)
	return e.fail[op]
}

// opsFrom returns the mutating operations recorded at index start and later.
func (e *fakeEnv) opsFrom(start int) []string {
	if start >= len(e.ops) {
		return nil
	}
	return e.ops[start:]
}

type fakeFS struct {
	env   *fakeEnv
	dirs  map[string]bool
	files map[string][]byte
}

func newFakeFS(env *fakeEnv) *fakeFS {
	return &fakeFS{env: env, dirs: map[string]bool{}, files: map[string][]byte{}}
}

func (f *fakeFS) CreateDir(_ context.Context, path string, _ fs.FileMode) error {
	if err := f.env.do("fs.CreateDir"); err != nil {
		return err
	}
	f.dirs[path] = true
	return nil
}

func (f *fakeFS) DeleteDir(_ context.Context, path string) error {
	if err := f.env.do("fs.DeleteDir"); err != nil {
		return err
	}
	delete(f.dirs, path)
	for p := range f.files {
		if strings.HasPrefix(p, path+"/") {
			delete(f.files, p)
		}
	}
	return nil
}

func (f *fakeFS) WriteFile(_ context.Context, path string, content []byte, _ fs.FileMode) error {
	if err := f.env.do("fs.WriteFile"); err != nil {
		return err
	}
	f.files[path] = content
	return nil
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("read file %s: no such file", path)
	}
	return content, nil
}

func (f *fakeFS) Exists(path string) (bool, error) {
	if f.dirs[path] {
		return true, nil
	}
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeFS) DirEmpty(path string) (bool, error) {
	for p := range f.files {
		if strings.HasPrefix(p, path+"/") {
			return false, nil
		}
	}
	for p := range f.dirs {
		if strings.HasPrefix(p, path+"/") {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeFS) ListDirs(path string) ([]string, error) {
	var names []string
	for p := range f.dirs {
		if filepath.Dir(p) == path {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeFS) SetOwnerAndMode(_ context.Context, _, _ string, _, _ fs.FileMode) error {
	return f.env.do("fs.SetOwnerAndMode")
}

type fakeWeb struct {
	env     *fakeEnv
	vhosts  map[string]bool
	enabled map[string]bool
	hosts   map[string]bool
	running bool
}

func newFakeWeb(env *fakeEnv) *fakeWeb {
	return &fakeWeb{
		env:     env,
		vhosts:  map[string]bool{},
		enabled: map[string]bool{},
		hosts:   map[string]bool{},
		running: true,
	}
}

func (w *fakeWeb) WriteVhostConfig(_ context.Context, siteID, _ string) error {
	if err := w.env.do("web.WriteVhostConfig"); err != nil {
		return err
	}
	w.vhosts[siteID] = true
	return nil
}

func (w *fakeWeb) RemoveVhostConfig(_ context.Context, siteID string) error {
	if err := w.env.do("web.RemoveVhostConfig"); err != nil {
		return err
	}
	delete(w.vhosts, siteID)
	return nil
}

func (w *fakeWeb) VhostConfigExists(siteID string) (bool, error) {
	return w.vhosts[siteID], nil
}

func (w *fakeWeb) ListVhosts() ([]string, error) {
	var sites []string
	for s := range w.vhosts {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites, nil
}

func (w *fakeWeb) ValidateConfig(context.Context) error {
	return w.env.do("web.ValidateConfig")
}

func (w *fakeWeb) Enable(_ context.Context, siteID string) error {
	if err := w.env.do("web.Enable"); err != nil {
		return err
	}
	w.enabled[siteID] = true
	return nil
}

func (w *fakeWeb) Disable(_ context.Context, siteID string) error {
	if err := w.env.do("web.Disable"); err != nil {
		return err
	}
	delete(w.enabled, siteID)
	return nil
}

func (w *fakeWeb) IsEnabled(siteID string) (bool, error) {
	return w.enabled[siteID], nil
}

func (w *fakeWeb) Reload(context.Context) error {
	return w.env.do("web.Reload")
}

func (w *fakeWeb) IsRunning(context.Context) (bool, error) {
	return w.running, nil
}

func (w *fakeWeb) AddHostsEntry(_ context.Context, siteID string) error {
	if err := w.env.do("web.AddHostsEntry"); err != nil {
		return err
	}
	if w.hosts[siteID] {
		return fmt.Errorf("hosts entry for %s already present", siteID)
	}
	w.hosts[siteID] = true
	return nil
}

func (w *fakeWeb) RemoveHostsEntry(_ context.Context, siteID string) error {
	if err := w.env.do("web.RemoveHostsEntry"); err != nil {
		return err
	}
	delete(w.hosts, siteID)
	return nil
}

func (w *fakeWeb) HostsEntryExists(siteID string) (bool, error) {
	return w.hosts[siteID], nil
}

type fakeDB struct {
	env       *fakeEnv
	pingErr   error
	databases map[string]bool
	users     map[string]bool
	tables    map[string]int
}

func newFakeDB(env *fakeEnv) *fakeDB {
	return &fakeDB{
		env:       env,
		databases: map[string]bool{},
		users:     map[string]bool{},
		tables:    map[string]int{},
	}
}

func (d *fakeDB) TestConnection(context.Context) error { return d.pingErr }

func (d *fakeDB) DatabaseExists(_ context.Context, name string) (bool, error) {
	return d.databases[name], nil
}

func (d *fakeDB) CreateDatabase(_ context.Context, name string) error {
	if err := d.env.do("db.CreateDatabase"); err != nil {
		return err
	}
	if d.databases[name] {
		return fmt.Errorf("database %s already exists", name)
	}
	d.databases[name] = true
	return nil
}

func (d *fakeDB) DropDatabase(_ context.Context, name string) error {
	if err := d.env.do("db.DropDatabase"); err != nil {
		return err
	}
	delete(d.databases, name)
	delete(d.tables, name)
	return nil
}

func (d *fakeDB) UserExists(_ context.Context, name string) (bool, error) {
	return d.users[name], nil
}

func (d *fakeDB) CreateUser(_ context.Context, name, _ string) error {
	if err := d.env.do("db.CreateUser"); err != nil {
		return err
	}
	d.users[name] = true
	return nil
}

func (d *fakeDB) DropUser(_ context.Context, name string) error {
	if err := d.env.do("db.DropUser"); err != nil {
		return err
	}
	delete(d.users, name)
	return nil
}

func (d *fakeDB) GrantAll(_ context.Context, _, _ string) error {
	return d.env.do("db.GrantAll")
}

func (d *fakeDB) TableCount(_ context.Context, database string) (int, error) {
	return d.tables[database], nil
}

type fakeCMS struct {
	env         *fakeEnv
	fs          *fakeFS
	callableErr error
}

func newFakeCMS(env *fakeEnv, filesystem *fakeFS) *fakeCMS {
	return &fakeCMS{env: env, fs: filesystem}
}

func (c *fakeCMS) IsCallable(context.Context) error { return c.callableErr }

func (c *fakeCMS) Download(_ context.Context, path string) error {
	if err := c.env.do("cms.Download"); err != nil {
		return err
	}
	c.fs.files[filepath.Join(path, "index.php")] = []byte("<?php\n")
	return nil
}

func (c *fakeCMS) WriteConfig(_ context.Context, path, dbName, dbUser, _ string) error {
	if err := c.env.do("cms.WriteConfig"); err != nil {
		return err
	}
	content := fmt.Sprintf("<?php\ndefine( 'DB_NAME', '%s' );\ndefine( 'DB_USER', '%s' );\n", dbName, dbUser)
	c.fs.files[filepath.Join(path, "wp-config.php")] = []byte(content)
	return nil
}

func (c *fakeCMS) Install(_ context.Context, _, _, _, _, _, _ string) error {
	return c.env.do("cms.Install")
}

func (c *fakeCMS) SetOption(_ context.Context, _, _, _ string) error {
	return c.env.do("cms.SetOption")
}

// testRecorder captures run and step events in memory.
type testRecorder struct {
	operations []string
	steps      []string
	statuses   []string
}

func (r *testRecorder) RunStarted(_ context.Context, _, operation, _ string, _ time.Time) {
	r.operations = append(r.operations, operation)
}

func (r *testRecorder) StepObserved(_ context.Context, _, step string, action StepAction, outcome, _ string) {
	r.steps = append(r.steps, fmt.Sprintf("%s/%s/%s", step, action, outcome))
}

func (r *testRecorder) RunFinished(_ context.Context, _, status, _ string, _ time.Time) {
	r.statuses = append(r.statuses, status)
}

// fixture wires the fake adapters into the engine entry points.
type fixture struct {
	env  *fakeEnv
	fs   *fakeFS
	web  *fakeWeb
	db   *fakeDB
	cms  *fakeCMS
	rec  *testRecorder
	prov *Provisioner
	dec  *Decommissioner
	insp *Inspector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := newFakeEnv()
	filesystem := newFakeFS(env)
	web := newFakeWeb(env)
	db := newFakeDB(env)
	cms := newFakeCMS(env, filesystem)
	rec := &testRecorder{}
	log := zerolog.Nop()

	opts := ProvisionerOptions{WebRoot: testWebRoot}
	return &fixture{
		env:  env,
		fs:   filesystem,
		web:  web,
		db:   db,
		cms:  cms,
		rec:  rec,
		prov: NewProvisioner(opts, filesystem, web, db, cms, rec, nil, log),
		dec:  NewDecommissioner(testWebRoot, filesystem, web, db, rec, nil, log),
		insp: NewInspector(testWebRoot, filesystem, web, db, cms),
	}
}

func validRequest() SiteRequest {
	return SiteRequest{
		SiteID:        "myblog",
		AdminUser:     "blogadmin",
		AdminPassword: "s3cretpass",
		AdminEmail:    "admin@example.com",
		DBName:        "myblog_db",
		DBUser:        "myblog_user",
		DBPassword:    "dbpass1234",
	}
}

// assertNoSiteResources fails the test if any resource for the request is
// still present.
func assertNoSiteResources(t *testing.T, f *fixture, req SiteRequest) {
	t.Helper()
	docRoot := filepath.Join(testWebRoot, req.SiteID)
	if f.fs.dirs[docRoot] {
		t.Errorf("document root %s still exists", docRoot)
	}
	if f.db.databases[req.DBName] {
		t.Errorf("database %s still exists", req.DBName)
	}
	if f.db.users[req.DBUser] {
		t.Errorf("database user %s still exists", req.DBUser)
	}
	if f.web.vhosts[req.SiteID] {
		t.Errorf("vhost for %s still exists", req.SiteID)
	}
	if f.web.enabled[req.SiteID] {
		t.Errorf("site %s still enabled", req.SiteID)
	}
	if f.web.hosts[req.SiteID] {
		t.Errorf("hosts entry for %s still exists", req.SiteID)
	}
}
