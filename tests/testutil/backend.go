package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nhle/automail/internal/model"
)

// naiveLayout is how the service writes datetimes: no zone, microseconds.
const naiveLayout = "2006-01-02T15:04:05.000000"

// RecordedRequest is one request observed by the fake backend.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

type failure struct {
	code    int
	message string
}

type storedFile struct {
	info    model.FileInfo
	content []byte
}

// FakeBackend is an in-memory stand-in for the mail service. It speaks
// the same enveloped JSON as the real service, including reporting
// failures with HTTP 200 and an error code in the body.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	teachers []model.Teacher
	smtp     *model.SMTPConfig
	logs     []model.EmailLog
	files    []storedFile
	rejected map[string]bool
	failures map[string]failure
	requests []RecordedRequest
}

// NewFakeBackend starts a fake service and stops it when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		rejected: map[string]bool{},
		failures: map[string]failure{},
	}

	r := chi.NewRouter()
	r.Use(b.record)
	r.Route("/files", func(r chi.Router) {
		r.Use(b.failGroup(model.GroupFile))
		r.Post("/upload", b.uploadFile)
		r.Get("/list", b.listFiles)
		r.Get("/info/{id}", b.fileInfo)
		r.Delete("/delete/{id}", b.deleteFile)
		r.Get("/download/{id}", b.downloadFile)
	})
	r.Route("/smtp", func(r chi.Router) {
		r.Use(b.failGroup(model.GroupSMTP))
		r.Get("/config", b.getConfig)
		r.Post("/config", b.addConfig)
		r.Put("/config/{id}", b.updateConfig)
		r.Delete("/config/{id}", b.deleteConfig)
		r.Post("/test-connection", b.testConnection)
		r.Post("/send", b.send)
		r.Post("/send-to-teachers", b.sendToTeachers)
		r.Get("/logs", b.listLogs)
		r.Get("/logs/status/{status}", b.logsByStatus)
		r.Get("/logs/email/{email}", b.logsByEmail)
	})
	r.Route("/teacher", func(r chi.Router) {
		r.Use(b.failGroup(model.GroupTeacher))
		r.Get("/", b.listTeachers)
		r.Post("/", b.createTeacher)
		r.Get("/college/{college}", b.teachersByCollege)
		r.Get("/research/{research}", b.teachersByResearch)
		r.Post("/search/school_level", b.teachersBySchoolLevel)
		r.Post("/search/school", b.teachersBySchool)
		r.Get("/{id}", b.getTeacher)
		r.Put("/{id}", b.updateTeacher)
		r.Delete("/{id}", b.deleteTeacher)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// Services returns service settings pointing every group at the fake.
func (b *FakeBackend) Services() model.ServicesConfig {
	return model.ServicesConfig{
		File:    model.ServiceConfig{BaseURL: b.Server.URL + "/files", TimeoutSec: 5},
		SMTP:    model.ServiceConfig{BaseURL: b.Server.URL + "/smtp", TimeoutSec: 5},
		Teacher: model.ServiceConfig{BaseURL: b.Server.URL + "/teacher", TimeoutSec: 5},
	}
}

// AddTeachers stores teachers, assigning ids to those without one, and
// returns them as stored.
func (b *FakeBackend) AddTeachers(ts ...model.Teacher) []model.Teacher {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Teacher, 0, len(ts))
	for _, t := range ts {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		b.teachers = append(b.teachers, t)
		out = append(out, t)
	}
	return out
}

// Teachers returns the stored directory.
func (b *FakeBackend) Teachers() []model.Teacher {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.teachers)
}

// SetSMTPConfig installs cfg as the active configuration.
func (b *FakeBackend) SetSMTPConfig(cfg model.SMTPConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	b.smtp = &cfg
}

// SMTPConfig returns the active configuration with its real password.
func (b *FakeBackend) SMTPConfig() (model.SMTPConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.smtp == nil {
		return model.SMTPConfig{}, false
	}
	return *b.smtp, true
}

// AddLog records a send attempt as if the service had made it.
func (b *FakeBackend) AddLog(l model.EmailLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.SendTime.IsZero() {
		l.SendTime = model.Timestamp{Time: time.Now().UTC()}
	}
	b.logs = append(b.logs, l)
}

// Logs returns every recorded attempt, oldest first.
func (b *FakeBackend) Logs() []model.EmailLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.logs)
}

// RejectAddress makes sends to addr fail and be logged as failed.
func (b *FakeBackend) RejectAddress(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejected[addr] = true
}

// FailGroup makes every request to group answer with an error envelope
// carrying code. A zero code clears the failure.
func (b *FakeBackend) FailGroup(group string, code int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == 0 {
		delete(b.failures, group)
		return
	}
	b.failures[group] = failure{code: code, message: message}
}

// Requests returns every request seen so far.
func (b *FakeBackend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// FileContent returns the stored bytes of an uploaded file.
func (b *FakeBackend) FileContent(id string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.files {
		if f.info.ID == id {
			return f.content, true
		}
	}
	return nil, false
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) failGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			f, ok := b.failures[group]
			b.mu.Unlock()
			if ok {
				writeError(w, f.code, "An error occurred.", f.message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":    []any{data},
		"code":    200,
		"message": message,
	})
}

func writeError(w http.ResponseWriter, code int, errLabel, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"error":   errLabel,
		"code":    code,
		"message": message,
	})
}

func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Teacher group.

func (b *FakeBackend) listTeachers(w http.ResponseWriter, r *http.Request) {
	writeData(w, b.Teachers(), "Teachers data retrieved successfully")
}

func (b *FakeBackend) filterTeachers(keep func(model.Teacher) bool) []model.Teacher {
	out := []model.Teacher{}
	for _, t := range b.Teachers() {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (b *FakeBackend) createTeacher(w http.ResponseWriter, r *http.Request) {
	var t model.Teacher
	if err := decodeBody(r, &t); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	t.ID = ""
	created := b.AddTeachers(t)
	writeData(w, created[0], "Teacher added successfully.")
}

func (b *FakeBackend) getTeacher(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	for _, t := range b.Teachers() {
		if t.ID == id {
			writeData(w, t, "Teacher data retrieved successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "An error occurred.", "Teacher doesn't exist.")
}

func (b *FakeBackend) updateTeacher(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	var p model.TeacherPatch
	if err := decodeBody(r, &p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.teachers {
		if b.teachers[i].ID != id {
			continue
		}
		t := &b.teachers[i]
		applyString(&t.Name, p.Name)
		applyString(&t.Title, p.Title)
		applyString(&t.URL, p.URL)
		applyString(&t.Email, p.Email)
		applyString(&t.Research, p.Research)
		applyString(&t.SchoolCollege, p.SchoolCollege)
		applyString(&t.SchoolLevel, p.SchoolLevel)
		applyString(&t.School, p.School)
		writeData(w, "Teacher with ID: "+id+" name update is successful", "Teacher name updated successfully")
		return
	}
	writeError(w, http.StatusNotFound, "An error occurred", "There was an error updating the teacher data.")
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (b *FakeBackend) deleteTeacher(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.teachers {
		if t.ID == id {
			b.teachers = slices.Delete(b.teachers, i, i+1)
			writeData(w, "Teacher with ID: "+id+" removed", "Teacher deleted successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "An error occurred", "Teacher with id "+id+" doesn't exist")
}

func (b *FakeBackend) teachersByCollege(w http.ResponseWriter, r *http.Request) {
	college := param(r, "college")
	writeData(w, b.filterTeachers(func(t model.Teacher) bool { return t.SchoolCollege == college }), "ok")
}

func (b *FakeBackend) teachersByResearch(w http.ResponseWriter, r *http.Request) {
	area := param(r, "research")
	writeData(w, b.filterTeachers(func(t model.Teacher) bool { return t.Research == area }), "ok")
}

func (b *FakeBackend) teachersBySchoolLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SchoolLevel string `json:"school_level"`
	}
	if err := decodeBody(r, &body); err != nil || body.SchoolLevel == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "school_level required"})
		return
	}
	writeData(w, b.filterTeachers(func(t model.Teacher) bool { return t.SchoolLevel == body.SchoolLevel }), "ok")
}

func (b *FakeBackend) teachersBySchool(w http.ResponseWriter, r *http.Request) {
	var body struct {
		School string `json:"school"`
	}
	if err := decodeBody(r, &body); err != nil || body.School == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "school required"})
		return
	}
	writeData(w, b.filterTeachers(func(t model.Teacher) bool { return t.School == body.School }), "ok")
}

// SMTP group.

func (b *FakeBackend) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := b.SMTPConfig()
	if !ok {
		writeError(w, http.StatusNotFound, "未找到配置", "SMTP配置不存在")
		return
	}
	cfg.Password = model.MaskedPassword
	writeData(w, cfg, "SMTP配置获取成功")
}

func (b *FakeBackend) addConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.SMTPConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if cfg.Password == "bad" {
		writeError(w, http.StatusBadRequest, "SMTP配置测试失败", "authentication failed")
		return
	}
	if existing, ok := b.SMTPConfig(); ok {
		cfg.ID = existing.ID
	}
	b.SetSMTPConfig(cfg)
	saved, _ := b.SMTPConfig()
	writeData(w, saved, "SMTP配置添加成功")
}

func (b *FakeBackend) updateConfig(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	var p model.SMTPConfigPatch
	if err := decodeBody(r, &p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.smtp == nil || b.smtp.ID != id {
		writeError(w, http.StatusNotFound, "更新失败", "SMTP配置不存在")
		return
	}
	applyString(&b.smtp.Server, p.Server)
	applyString(&b.smtp.Username, p.Username)
	applyString(&b.smtp.Password, p.Password)
	applyString(&b.smtp.SenderName, p.SenderName)
	applyString(&b.smtp.SenderEmail, p.SenderEmail)
	if p.Port != nil {
		b.smtp.Port = *p.Port
	}
	if p.UseTLS != nil {
		b.smtp.UseTLS = *p.UseTLS
	}
	writeData(w, "SMTP配置 "+id+" 更新成功", "SMTP配置更新成功")
}

func (b *FakeBackend) deleteConfig(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.smtp == nil || b.smtp.ID != id {
		writeError(w, http.StatusNotFound, "删除失败", "SMTP配置不存在")
		return
	}
	b.smtp = nil
	writeData(w, "SMTP配置 "+id+" 删除成功", "SMTP配置删除成功")
}

func (b *FakeBackend) testConnection(w http.ResponseWriter, r *http.Request) {
	var cfg model.SMTPConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if cfg.Password == "bad" {
		writeError(w, http.StatusBadRequest, "连接测试失败", "authentication failed")
		return
	}
	writeData(w, model.SendResult{Success: true, Message: "SMTP连接测试成功"}, "SMTP连接测试成功")
}

// deliver logs one attempt and reports whether it succeeded.
func (b *FakeBackend) deliver(e model.Email) bool {
	b.mu.Lock()
	sender := ""
	if b.smtp != nil {
		sender = b.smtp.SenderEmail
	}
	failed := b.smtp == nil
	for _, to := range e.To {
		if b.rejected[to] {
			failed = true
		}
	}
	b.mu.Unlock()

	l := model.EmailLog{
		To:          e.To,
		Cc:          e.Cc,
		Bcc:         e.Bcc,
		Subject:     e.Subject,
		Body:        e.Body,
		SenderEmail: sender,
		Status:      model.SendStatusSuccess,
	}
	if failed {
		l.Status = model.SendStatusFailed
		l.ErrorMessage = "recipient rejected"
	}
	b.AddLog(l)
	return !failed
}

func (b *FakeBackend) send(w http.ResponseWriter, r *http.Request) {
	var e model.Email
	if err := decodeBody(r, &e); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if !b.deliver(e) {
		writeError(w, http.StatusInternalServerError, "邮件发送失败", "recipient rejected")
		return
	}
	writeData(w, model.SendResult{Success: true, Message: "邮件发送成功"}, "邮件发送成功")
}

func (b *FakeBackend) sendToTeachers(w http.ResponseWriter, r *http.Request) {
	var m model.TeacherMailing
	if err := decodeBody(r, &m); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	byID := make(map[string]model.Teacher)
	for _, t := range b.Teachers() {
		byID[t.ID] = t
	}
	var emails []string
	for _, id := range m.TeacherIDs {
		if t, ok := byID[id]; ok && t.Email != "" {
			emails = append(emails, t.Email)
		}
	}
	if len(emails) == 0 {
		writeError(w, http.StatusBadRequest, "无有效邮箱", "未找到有效的教师邮箱地址")
		return
	}

	// one message with every address in To, all or nothing
	if !b.deliver(model.Email{To: emails, Subject: m.Subject, Body: m.Body, IsHTML: m.IsHTML}) {
		writeError(w, http.StatusInternalServerError, "批量发送失败", "recipient rejected")
		return
	}
	writeData(w, model.TeacherMailingResult{SentTo: emails, Count: len(emails)}, "邮件已发送给教师")
}

// wireLog is an EmailLog with the send time written the way the service
// writes it.
type wireLog struct {
	model.EmailLog
	SendTime string `json:"send_time"`
}

func (b *FakeBackend) writeLogs(w http.ResponseWriter, r *http.Request, keep func(model.EmailLog) bool) {
	limit := model.DefaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "limit must be an integer"})
			return
		}
		limit = n
	}

	all := b.Logs()
	out := []wireLog{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(all[i]) {
			out = append(out, wireLog{EmailLog: all[i], SendTime: all[i].SendTime.UTC().Format(naiveLayout)})
		}
	}
	writeData(w, out, "获取到邮件日志")
}

func (b *FakeBackend) listLogs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	email := r.URL.Query().Get("email")
	b.writeLogs(w, r, func(l model.EmailLog) bool {
		if status != "" && l.Status != status {
			return false
		}
		return email == "" || slices.Contains(l.To, email)
	})
}

func (b *FakeBackend) logsByStatus(w http.ResponseWriter, r *http.Request) {
	status := param(r, "status")
	b.writeLogs(w, r, func(l model.EmailLog) bool { return l.Status == status })
}

func (b *FakeBackend) logsByEmail(w http.ResponseWriter, r *http.Request) {
	email := param(r, "email")
	b.writeLogs(w, r, func(l model.EmailLog) bool { return slices.Contains(l.To, email) })
}

// File group.

type wireFile struct {
	model.FileInfo
	UploadTime string `json:"upload_time"`
}

func toWireFile(info model.FileInfo) wireFile {
	return wireFile{FileInfo: info, UploadTime: info.UploadTime.UTC().Format(naiveLayout)}
}

func (b *FakeBackend) uploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "上传失败", err.Error())
		return
	}
	if len(content) > model.MaxUploadSize {
		writeError(w, http.StatusBadRequest, "文件过大", "文件大小不能超过10MB")
		return
	}

	id := uuid.NewString()
	info := model.FileInfo{
		ID:          id,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		UploadTime:  model.Timestamp{Time: time.Now().UTC()},
		FilePath:    "uploads/" + id,
	}

	b.mu.Lock()
	b.files = append(b.files, storedFile{info: info, content: content})
	b.mu.Unlock()

	writeData(w, toWireFile(info), "文件上传成功")
}

func (b *FakeBackend) listFiles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]wireFile, 0, len(b.files))
	for _, f := range b.files {
		out = append(out, toWireFile(f.info))
	}
	b.mu.Unlock()
	writeData(w, out, "获取文件列表成功")
}

func (b *FakeBackend) findFile(id string) (storedFile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.files {
		if f.info.ID == id {
			return f, true
		}
	}
	return storedFile{}, false
}

func (b *FakeBackend) fileInfo(w http.ResponseWriter, r *http.Request) {
	f, ok := b.findFile(param(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "文件不存在", "未找到指定文件")
		return
	}
	writeData(w, toWireFile(f.info), "获取文件信息成功")
}

func (b *FakeBackend) deleteFile(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, f := range b.files {
		if f.info.ID == id {
			b.files = slices.Delete(b.files, i, i+1)
			writeData(w, nil, "文件删除成功")
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "删除失败", "文件不存在")
}

func (b *FakeBackend) downloadFile(w http.ResponseWriter, r *http.Request) {
	f, ok := b.findFile(param(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "文件不存在"})
		return
	}
	ct := f.info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.info.Filename+`"`)
	_, _ = w.Write(f.content)
}
