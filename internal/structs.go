package internal

import (
	"strings"

	"filedrawer.app/web/internal/database"
)

// Form bodies

type SignupForm struct {
	FirstName       string `form:"firstName" validate:"required,alpha,min=3,max=10"`
	LastName        string `form:"lastName" validate:"required,alpha,min=3,max=10"`
	Username        string `form:"username" validate:"required,min=3,max=32,nowhitespace"`
	Password        string `form:"password" validate:"required,min=7,nowhitespace"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

// Normalize trims surrounding whitespace the way the form is read back.
func (f *SignupForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Password = strings.TrimSpace(f.Password)
	f.ConfirmPassword = strings.TrimSpace(f.ConfirmPassword)
}

// Public drops the secrets before a form is rendered back.
func (f SignupForm) Public() SignupForm {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}

type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Normalize trims the credentials the same way sign-up stored them.
func (f *LoginForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Password = strings.TrimSpace(f.Password)
}

type FolderForm struct {
	Name string `form:"folderName" validate:"required,max=64"`
}

// Template data

type IndexView struct {
	User    *database.DBUser
	Folders []database.DBFolder
}

type SignupView struct {
	Form   SignupForm
	Errors []string
}

type FolderFormView struct {
	Folder *database.DBFolder
	Name   string
	Errors []string
}

type FilesView struct {
	User   *database.DBUser
	Folder *database.DBFolder
	Files  []FileView
}

type FileView struct {
	database.DBFile
	HumanSize string
}
