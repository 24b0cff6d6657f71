package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Resource names used in error context and reporting.
const (
	ResourceDirectory = "directory"
	ResourceDatabase  = "database"
	ResourceDBUser    = "database_user"
	ResourceVhost     = "vhost"
	ResourceHosts     = "hosts"
	ResourceCMS       = "cms"
	ResourceWebServer = "webserver"
)

// reservedSiteIDs are names that would collide with common system accounts,
// service paths, or WordPress internals.
var reservedSiteIDs = []string{
	"admin", "administrator", "root", "www", "mysql", "apache", "localhost",
	"wordpress", "wp-admin", "default", "test",
}

// SiteRequest describes one site to provision. It is immutable once
// validated; every field comes from operator input at process start.
type SiteRequest struct {
	SiteID        string `validate:"required,min=2,max=32,siteid"`
	AdminUser     string `validate:"required,min=3,max=32,ident"`
	AdminPassword string `validate:"required,min=8"`
	AdminEmail    string `validate:"required,email"`
	DBName        string `validate:"required,min=2,max=64,ident"`
	DBUser        string `validate:"required,min=2,max=32,ident"`
	DBPassword    string `validate:"required,min=8"`
}

// SiteInfo is the snapshot returned after a successful provisioning run.
type SiteInfo struct {
	SiteID       string `json:"site_id"`
	Domain       string `json:"domain"`
	URL          string `json:"url"`
	DocumentRoot string `json:"document_root"`
	AdminUser    string `json:"admin_user"`
	DBName       string `json:"db_name"`
	DBUser       string `json:"db_user"`
}

var (
	siteIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	identPattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	requestValidator = newRequestValidator()
)

func newRequestValidator() *validator.Validate {
	v := validator.New()
	// Site ids become hostnames (<id>.localhost) and directory names.
	_ = v.RegisterValidation("siteid", func(fl validator.FieldLevel) bool {
		return siteIDPattern.MatchString(fl.Field().String())
	})
	// Database identifiers and usernames: word characters only, so they can
	// be safely backtick-quoted in DDL.
	_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the request against field constraints and the reserved
// name list. It returns a validation-kind error before any resource is
// touched.
func (r SiteRequest) Validate() error {
	for _, reserved := range reservedSiteIDs {
		if strings.EqualFold(r.SiteID, reserved) {
			return NewValidationError(
				fmt.Sprintf("site id %q is reserved", r.SiteID), nil,
			).WithResource(ResourceDirectory)
		}
	}
	if err := requestValidator.Struct(r); err != nil {
		return NewValidationError("invalid site request", err)
	}
	return nil
}

// Domain returns the local development domain for the site.
func (r SiteRequest) Domain() string {
	return r.SiteID + ".localhost"
}

// URL returns the site URL served by the local web server.
func (r SiteRequest) URL() string {
	return "http://" + r.Domain()
}
