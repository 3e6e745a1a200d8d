package api

import "github.com/nhle/automail/internal/model"

// Services bundles one client per service group.
type Services struct {
	Files    *FileClient
	SMTP     *SMTPClient
	Teachers *TeacherClient
}

// New builds the clients for every group from the application config.
func New(cfg *model.AppConfig) *Services {
	return &Services{
		Files:    NewFileClient(cfg.Services.File),
		SMTP:     NewSMTPClient(cfg.Services.SMTP),
		Teachers: NewTeacherClient(cfg.Services.Teacher),
	}
}
