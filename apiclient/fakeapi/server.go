// Package fakeapi is an in-memory stand-in for the remote authentication API.
// It follows the server's routes, status codes and error body shapes closely
// enough to exercise the client end to end.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-auth-client/apiclient"
)

const (
	minPasswordLength = 8
	authScheme        = "JWT"
)

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "12345678": {}, "qwertyui": {},
}

// User is an account known to the fake server
type User struct {
	ID        string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Active    bool
	Extra     map[string]any
}

// Request records one request the server received
type Request struct {
	Method        string
	Path          string
	Authorization string
}

type cannedResponse struct {
	status int
	body   string
}

// Server is the fake API. Use Handler with httptest.NewServer.
type Server struct {
	lock   sync.Mutex
	router *mux.Router

	users            map[string]*User  // email -> user
	activationTokens map[string]string // user ID -> token
	resetTokens      map[string]string // user ID -> token

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowTime    func() time.Time

	loginDelay time.Duration
	failNext   map[string]cannedResponse
	requests   []Request
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithNowTime sets the clock used for token timestamps
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithAccessTTL sets the lifetime of issued access tokens
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

func New(options ...Option) *Server {
	s := &Server{
		users:            make(map[string]*User),
		activationTokens: make(map[string]string),
		resetTokens:      make(map[string]string),
		failNext:         make(map[string]cannedResponse),
		secret:           []byte(uuid.NewString()),
		accessTTL:        5 * time.Minute,
		refreshTTL:       24 * time.Hour,
		nowTime:          time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	r := mux.NewRouter()
	r.Use(s.recordAndIntercept)
	r.HandleFunc(apiclient.RouteJWTCreate, s.handleCreateToken).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteJWTRefresh, s.handleRefreshToken).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteMe, s.handleMe).Methods(http.MethodGet)
	r.HandleFunc(apiclient.RouteMeUpdate, s.handleMe).Methods(http.MethodGet)
	r.HandleFunc(apiclient.RouteMeUpdate, s.handleUpdateMe).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc(apiclient.RouteSetPassword, s.handleSetPassword).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteUsers, s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteActivation, s.handleActivation).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteResendActivation, s.handleResendActivation).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteResetPassword, s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc(apiclient.RouteResetPasswordConfirm, s.handleResetPasswordConfirm).Methods(http.MethodPost)
	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// AddUser stores a user and returns its ID
func (s *Server) AddUser(u User) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[strings.ToLower(u.Email)] = &u
	return u.ID
}

// GetUser returns a copy of the stored user
func (s *Server) GetUser(email string) (User, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// ActivationLink returns the uid/token pair last mailed to email
func (s *Server) ActivationLink(email string) (uid, token string, ok bool) {
	return s.link(email, s.activationTokens)
}

// ResetLink returns the uid/token pair of the last password reset for email
func (s *Server) ResetLink(email string) (uid, token string, ok bool) {
	return s.link(email, s.resetTokens)
}

func (s *Server) link(email string, tokens map[string]string) (string, string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return "", "", false
	}
	t, ok := tokens[u.ID]
	return u.ID, t, ok
}

// SetLoginDelay delays every token creation response
func (s *Server) SetLoginDelay(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.loginDelay = d
}

// FailNext makes the next request to path answer with status and body
func (s *Server) FailNext(path string, status int, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failNext[path] = cannedResponse{status: status, body: body}
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Request(nil), s.requests...)
}

// IssuePair mints a token pair for a stored user
func (s *Server) IssuePair(email string) (string, string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return "", "", fmt.Errorf("unknown user %s", email)
	}
	return s.issuePair(u)
}

func (s *Server) recordAndIntercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
		})
		canned, fail := s.failNext[r.URL.Path]
		if fail {
			delete(s.failNext, r.URL.Path)
		}
		s.lock.Unlock()

		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.status)
			_, _ = w.Write([]byte(canned.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issuePair(u *User) (string, string, error) {
	now := s.nowTime()
	access, err := s.sign(jwtlib.MapClaims{
		"token_type": "access",
		"user_id":    u.ID,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return "", "", err
	}
	refresh, err := s.sign(jwtlib.MapClaims{
		"token_type": "refresh",
		"user_id":    u.ID,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) sign(claims jwtlib.MapClaims) (string, error) {
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify returns the user a token of tokenType belongs to. Callers hold s.lock.
func (s *Server) verify(raw, tokenType string) (*User, bool) {
	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.nowTime),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || claims["token_type"] != tokenType {
		return nil, false
	}
	userID, _ := claims["user_id"].(string)
	for _, u := range s.users {
		if u.ID == userID {
			return u, true
		}
	}
	return nil, false
}

// authenticate resolves the user from the Authorization header. Callers hold s.lock.
func (s *Server) authenticate(r *http.Request) (*User, bool) {
	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || scheme != authScheme {
		return nil, false
	}
	return s.verify(raw, "access")
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	delay := s.loginDelay
	s.lock.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	errs := fieldErrors{}
	if body["email"] == "" {
		errs = errs.add("email", "This field is required.")
	}
	if body["password"] == "" {
		errs = errs.add("password", "This field is required.")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(body["email"])]
	if !ok || u.Password != body["password"] || !u.Active {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, refresh, err := s.issuePair(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.verify(body["refresh"], "refresh")
	if !ok {
		writeJSON(w, http.StatusUnauthorized, fieldErrors{}.
			add("detail", "Token is invalid or expired").
			add("code", "token_not_valid"))
		return
	}
	access, _, err := s.issuePair(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	writeJSON(w, http.StatusOK, profileOf(u))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	if email, present := body["email"]; present {
		if e, _ := email.(string); !validEmail(e) {
			writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("email", "Enter a valid email address."))
			return
		}
	}

	for k, v := range body {
		switch k {
		case "id", "password":
		case "first_name":
			u.FirstName, _ = v.(string)
		case "last_name":
			u.LastName, _ = v.(string)
		case "email":
			delete(s.users, strings.ToLower(u.Email))
			u.Email, _ = v.(string)
			s.users[strings.ToLower(u.Email)] = u
		default:
			if u.Extra == nil {
				u.Extra = make(map[string]any)
			}
			u.Extra[k] = v
		}
	}
	writeJSON(w, http.StatusOK, profileOf(u))
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	errs := fieldErrors{}
	if body["current_password"] != u.Password {
		errs = errs.add("current_password", "Invalid password.")
	}
	errs = errs.add("new_password", passwordProblems(body["new_password"])...)
	if retype, present := body["re_new_password"]; present && retype != body["new_password"] {
		errs = errs.add("non_field_errors", "The two password fields didn't match.")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u.Password = body["new_password"]
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.lock.Lock()
	defer s.lock.Unlock()

	errs := fieldErrors{}
	switch {
	case email == "":
		errs = errs.add("email", "This field is required.")
	case !validEmail(email):
		errs = errs.add("email", "Enter a valid email address.")
	default:
		if _, exists := s.users[strings.ToLower(email)]; exists {
			errs = errs.add("email", "user with this email already exists.")
		}
	}
	errs = errs.add("password", passwordProblems(password)...)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u := &User{ID: uuid.NewString(), Email: email, Password: password}
	u.FirstName, _ = body["first_name"].(string)
	u.LastName, _ = body["last_name"].(string)
	s.users[strings.ToLower(email)] = u
	s.activationTokens[u.ID] = uuid.NewString()

	writeJSON(w, http.StatusCreated, profileOf(u))
}

func (s *Server) handleActivation(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u := s.userByID(body["uid"])
	if u == nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("uid", "Invalid user id or user doesn't exist."))
		return
	}
	if u.Active {
		writeDetail(w, http.StatusForbidden, "Stale token for given user.")
		return
	}
	if t, ok := s.activationTokens[u.ID]; !ok || t != body["token"] {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("token", "Invalid token for given user."))
		return
	}
	u.Active = true
	delete(s.activationTokens, u.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResendActivation(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(body["email"])]
	if !ok || u.Active {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("email", "User with given email does not exist."))
		return
	}
	s.activationTokens[u.ID] = uuid.NewString()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[strings.ToLower(body["email"])]
	if !ok {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("email", "User with given email does not exist."))
		return
	}
	s.resetTokens[u.ID] = uuid.NewString()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !decodeBody(w, r, &body) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u := s.userByID(body["uid"])
	if u == nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("uid", "Invalid user id or user doesn't exist."))
		return
	}
	if t, ok := s.resetTokens[u.ID]; !ok || t != body["token"] {
		writeJSON(w, http.StatusBadRequest, fieldErrors{}.add("token", "Invalid token for given user."))
		return
	}

	errs := fieldErrors{}.add("new_password", passwordProblems(body["new_password"])...)
	if body["new_password"] != body["re_new_password"] {
		errs = errs.add("non_field_errors", "The two password fields didn't match.")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u.Password = body["new_password"]
	delete(s.resetTokens, u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// userByID looks a user up by ID. Callers hold s.lock.
func (s *Server) userByID(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func profileOf(u *User) map[string]any {
	profile := map[string]any{}
	for k, v := range u.Extra {
		profile[k] = v
	}
	profile["id"] = u.ID
	profile["email"] = u.Email
	profile["first_name"] = u.FirstName
	profile["last_name"] = u.LastName
	return profile
}

func passwordProblems(password string) []string {
	if password == "" {
		return []string{"This field is required."}
	}
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}
	return problems
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && strings.Contains(email[at:], ".")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, fieldErrors{}.add("detail", detail))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fieldErrors marshals as a JSON object whose keys keep insertion order,
// like the server's error bodies.
type fieldErrors []fieldError

type fieldError struct {
	field    string
	messages []string
}

func (fe fieldErrors) add(field string, messages ...string) fieldErrors {
	if len(messages) == 0 {
		return fe
	}
	for i := range fe {
		if fe[i].field == field {
			fe[i].messages = append(fe[i].messages, messages...)
			return fe
		}
	}
	return append(fe, fieldError{field: field, messages: messages})
}

func (fe fieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fe {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value []byte
		// detail and code are plain strings on the wire
		if (f.field == "detail" || f.field == "code") && len(f.messages) == 1 {
			value, err = json.Marshal(f.messages[0])
		} else {
			value, err = json.Marshal(f.messages)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
