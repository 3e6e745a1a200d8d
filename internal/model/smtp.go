package model


// Email log statuses reported by the SMTP service.
const (
	SendStatusSuccess = "success"
	SendStatusFailed  = "failed"
)

// DefaultLogLimit is the page size used when a log query leaves it unset.
const DefaultLogLimit = 100

// MaskedPassword is what the service returns in place of the stored
// SMTP password.
const MaskedPassword = "***"

// SMTPConfig is the outgoing mail server configuration kept by the
// SMTP service. The service keeps a single active configuration.
type SMTPConfig struct {
	ID          string `json:"id,omitempty"`
	Server      string `json:"smtp_server" validate:"required,hostname_rfc1123|ip"`
	Port        int    `json:"smtp_port" validate:"required,min=1,max=65535"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	UseTLS      bool   `json:"use_tls"`
	SenderName  string `json:"sender_name" validate:"required"`
	SenderEmail string `json:"sender_email" validate:"required,email"`
}

// PasswordMasked reports whether Password is the service's placeholder
// rather than a real secret.
func (c SMTPConfig) PasswordMasked() bool {
	return c.Password == MaskedPassword
}

// SMTPConfigPatch is a partial SMTP configuration update.
type SMTPConfigPatch struct {
	Server      *string `json:"smtp_server,omitempty"`
	Port        *int    `json:"smtp_port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username    *string `json:"username,omitempty"`
	Password    *string `json:"password,omitempty"`
	UseTLS      *bool   `json:"use_tls,omitempty"`
	SenderName  *string `json:"sender_name,omitempty"`
	SenderEmail *string `json:"sender_email,omitempty" validate:"omitempty,email"`
}

// Email is a message for the generic send endpoint.
type Email struct {
	To          []string `json:"to_emails" validate:"required,min=1,dive,email"`
	Cc          []string `json:"cc_emails,omitempty" validate:"omitempty,dive,email"`
	Bcc         []string `json:"bcc_emails,omitempty" validate:"omitempty,dive,email"`
	Subject     string   `json:"subject" validate:"required"`
	Body        string   `json:"body" validate:"required"`
	IsHTML      bool     `json:"is_html"`
	Attachments []string `json:"attachments,omitempty"`
}

// SendResult is the service's report for a single send.
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TeacherMailing asks the service to mail a set of teachers by id. The
// service resolves the addresses itself.
type TeacherMailing struct {
	TeacherIDs []string `json:"teacher_ids" validate:"required,min=1"`
	Subject    string   `json:"subject" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	IsHTML     bool     `json:"is_html"`
}

// TeacherMailingResult lists the addresses a mailing was delivered to.
type TeacherMailingResult struct {
	SentTo []string `json:"sent_to"`
	Count  int      `json:"count"`
}

// EmailLog is one send attempt recorded by the SMTP service.
type EmailLog struct {
	To           []string  `json:"to_emails"`
	Cc           []string  `json:"cc_emails,omitempty"`
	Bcc          []string  `json:"bcc_emails,omitempty"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	SenderEmail  string    `json:"sender_email"`
	SendTime     Timestamp `json:"send_time"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Failed reports whether the attempt was recorded as failed.
func (l EmailLog) Failed() bool {
	return l.Status == SendStatusFailed
}

// LogQuery filters the email log listing. Zero values are not sent.
type LogQuery struct {
	Status string
	Email  string
	Limit  int
}
