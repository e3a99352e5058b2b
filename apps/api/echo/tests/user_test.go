package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/sekolahkita/portalguru/apps/api/echo"
	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/user"
	"github.com/sekolahkita/portalguru/services/email"
	"github.com/sekolahkita/portalguru/tests"
)

func Test_userApi_userQuery(t *testing.T) {
	testutil.ResetDB(t, db)

	path := func(search, ordering string, createdFrom, createdTo time.Time, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)
	t4 := now.Add(4 * time.Hour)
	t5 := now.Add(5 * time.Hour)

	usr1 := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.id", "", nil, true, t1)
	usr2 := testutil.CreateUser(t, usrRepo, "King", "user02", "king@test.id", "", nil, true)
	parent := testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.id", "", []string{user.RoleParent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true, t2.Truncate(time.Second))
	principal := testutil.CreateUser(t, usrRepo, "Principal", "princip", "princip@test.id", "", []string{user.RoleAdminPrincipal}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true, t3)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.id", "", []string{user.RoleParent}, false) // 😂

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, teacher, admin, usr1, naughty, principal, parent, usr2),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: empty},
		{
			name: "search=USE", path: path("USE", "", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, usr1, parent, usr2),
		},
		{name: "role (unknown)", path: path("", "", time.Time{}, time.Time{}, nil, "lol"), token: adminToken, wantData: empty},
		{
			name: "role=admin:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleAdmin),
			token: adminToken, wantData: marchallList(t, admin, principal),
		},
		{
			name: "role=teacher:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTeacher),
			token: adminToken, wantData: marchallList(t, teacher),
		},
		{
			name: "role=teacher:,parent:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTeacher, user.RoleParent),
			token: adminToken, wantData: marchallList(t, teacher, naughty, parent),
		},
		{
			name: "is_active=true", path: path("", "", time.Time{}, time.Time{}, bPtr(true)),
			token: adminToken, wantData: marchallList(t, teacher, admin, usr1, principal, parent, usr2),
		},
		{name: "is_active=false", path: path("", "", time.Time{}, time.Time{}, bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "created_from (UTC)", path: path("", "", t1.UTC(), time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, teacher, admin, usr1),
		},
		{
			name: "created_from (curr TZ)", path: path("", "", t1, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, teacher, admin, usr1),
		},
		{
			name: "created_to (curr TZ)", path: path("", "", time.Time{}, t2, nil),
			token: adminToken, wantData: marchallList(t, admin, usr1, naughty, principal, parent, usr2),
		},
		{name: "created_from - created_to (empty)", path: path("", "", t4, t5, nil), token: adminToken, wantData: empty},
		{name: "created_from - created_to (found)", path: path("", "", t1, t2, nil), token: adminToken, wantData: marchallList(t, admin, usr1)},
		{name: "all combo (empty)", path: path("USE", "", t1, t5, bPtr(true), user.RoleAdminPrincipal), token: adminToken, wantData: empty},
		{
			name: "all combo (found)", path: path("tea", "", t1, t5, bPtr(true), user.RoleTeacher),
			token: adminToken, wantData: marchallList(t, teacher),
		},
		// ordering
		{
			name: "order by created_at", path: path("", "created_at", time.Time{}, time.Time{}, nil), token: adminToken,
			ordered: true, wantData: marchallList(t, usr2, parent, principal, naughty, usr1, admin, teacher),
		},
		{
			name: "order by -created_at", path: path("", "-created_at", time.Time{}, time.Time{}, nil), token: adminToken,
			ordered: true, wantData: marchallList(t, teacher, admin, usr1, naughty, principal, parent, usr2),
		},
		{
			name: "order by is_active,-name", path: path("", "is_active,-name", time.Time{}, time.Time{}, nil), token: adminToken,
			ordered: true, wantData: marchallList(t, naughty, usr1, teacher, principal, usr2, parent, admin),
		},
		{
			name: "order by -is_active,name", path: path("", "-is_active,name", time.Time{}, time.Time{}, nil), token: adminToken,
			ordered: true, wantData: marchallList(t, admin, parent, usr2, principal, teacher, usr1, naughty),
		},
		// filtering & ordering
		{
			name: "filtering & ordering", path: path("", "name", time.Time{}, time.Time{}, nil, user.RoleTeacher, user.RoleParent), token: adminToken,
			ordered: true, wantData: marchallList(t, parent, naughty, teacher),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)

	reqMsg := "this field is required"
	orMsg := "one of username or email is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             reqMsg,
				"username":         orMsg,
				"email":            orMsg,
				"password":         "password must contain at least 8 characters",
				"password_confirm": reqMsg,
			}),
		},
		{
			name: "username too short", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Lol", Username: "lol", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"username": "username must be at least 6 characters in length"}),
		},
		{
			name: "passwords mismatch", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Guru Baru", Username: "gurubaru", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid roles", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Guru Baru", Username: "gurubaru", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{"lol"}}),
			wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{
			name: "username taken", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Guru Palsu", Username: "guruayu", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "email taken", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Guru Palsu", Username: "gurupalsu", Email: "ayu@test.id", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "roles above own rank", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Big Boss", Username: "bigboss", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{user.RoleAdminOwner}}),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "user created", token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{Name: "Guru Baru", Username: "gurubaru", Email: "baru@test.id", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{user.RoleTeacher}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// response contains generated fields.. check them loosely
			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.ID == "" {
					t.Error("failed! empty ID")
				}
				if usr.Name != "Guru Baru" || usr.Username != "gurubaru" || usr.Email != "baru@test.id" {
					t.Errorf("failed! usr = %+v", usr)
				}
				if !usr.Active() {
					t.Error("failed! new user is not active")
				}
				if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleTeacher {
					t.Errorf("failed! roles = %v", usr.Roles)
				}
				if len(emailsvc.SentMessages) != 1 {
					t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
				}
				msg := emailsvc.SentMessages[0]
				if want := (mail.Address{Name: usr.Name, Address: usr.Email}); msg.To[0] != want {
					t.Errorf("failed! To = %v; want %v", msg.To[0], want)
				}
				if want := "Welcome to " + core.Conf.AppName; msg.Subject != want {
					t.Errorf("failed! Subject = %q; want %q", msg.Subject, want)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userLogin(t *testing.T) {
	testutil.ResetDB(t, db)

	testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "LolC@t123", []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.id", "LolC@t123", []string{user.RoleParent}, false) // 😂

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: reqMsg, Password: reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "guruayu", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login with username", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: "guruayu", Password: "LolC@t123"})},
		{name: "login with email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: "AYU@test.id", Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	testutil.ResetDB(t, db)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.id", "", []string{user.RoleParent}, false) // 😂
	parent := testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.id", "", []string{user.RoleParent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    core.Conf.AppName,
			Subject:   parent.ID,
			Audience:  jwt.ClaimStrings{"Sekolah"},
			ExpiresAt: jwt.NewNumericDate(now.Add(core.Conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     parent.Username,
		Email:        parent.Email,
		IsParent:     parent.IsParent(),
		IsTeacher:    parent.IsTeacher(),
		IsAdmin:      parent.IsAdmin(),
		Roles:        parent.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	testutil.ResetDB(t, db)

	parent := testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.id", "", []string{user.RoleParent}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex, err := regexp.Compile("/password-reset/.+/.+")
	if err != nil {
		t.Fatalf("regexp.Compile(): %v", err)
	}

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: parent.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: parent.Name, Address: parent.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if extra.emailSent {
					if len(emailsvc.SentMessages) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
					}
					msg := emailsvc.SentMessages[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, extra.to.Name) {
						t.Errorf("failed! text content does not contain recipient's name %q", extra.to.Name)
					}
					if !strings.Contains(msg.HTMLContent, extra.to.Name) {
						t.Errorf("failed! HTML content does not contain recipient's name %q", extra.to.Name)
					}
					if !pathRegex.MatchString(msg.TextContent) {
						t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
					}
					if !pathRegex.MatchString(msg.HTMLContent) {
						t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
					}
				} else {
					if len(emailsvc.SentMessages) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
					}
				}
			}
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	testutil.ResetDB(t, db)

	parent := testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.id", "lol", []string{user.RoleParent}, true)
	validUID := user.EncodeUID(parent)
	validToken, err := user.MakeToken(parent)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	// generate an expired token
	dayLate := core.Conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	user.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := user.MakeToken(parent)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	user.NowFunc = time.Now // reset

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "bG9s", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{UID: "invalid value"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{UID: "invalid value"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid value"}),
		},
		{
			name: "expired token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: expiredToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid value"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshedParent, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: parent.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedParent.PasswordHash, parent.PasswordHash) {
					t.Fatalf("failed to update new password")
				}
			}
		})
	}
}

func Test_userApi_userRetrieve(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, usrRepo, "Guru Budi", "gurubudi", "budi@test.id", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + teacher.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Owner can view self", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallObj(t, teacher)},
		{
			name: "Others are off limits", path: "/v1/users/" + other.ID, token: getToken(t, teacher), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "Admin can view any", path: "/v1/users/" + other.ID, token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{
			name: "Unknown user", path: "/v1/users/lol", token: getToken(t, admin), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userUpdate(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)

	bPtr := func(b bool) *bool { return &b }
	type extraTest struct {
		wantName   string
		wantRoles  []string
		wantActive *bool
	}
	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + teacher.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Roles are admin-only", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body:     marchallObj(t, user.UpdateUser{Roles: []string{user.RoleTeacherHomeroom}}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "IsActive is admin-only", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body:     marchallObj(t, user.UpdateUser{IsActive: bPtr(false)}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "PasswordConfirm required with Password", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.UpdateUser{Password: "NewC@t123"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "this field is required"}),
		},
		{
			name: "Roles above own rank", path: "/v1/users/" + teacher.ID, token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdminOwner}}),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "Owner updates own name", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusOK,
			body:  marchallObj(t, user.UpdateUser{Name: "Guru Ayu Lestari"}),
			extra: extraTest{wantName: "Guru Ayu Lestari"},
		},
		{
			name: "Admin updates roles and is_active", path: "/v1/users/" + teacher.ID, token: getToken(t, admin), wantCode: http.StatusOK,
			body:  marchallObj(t, user.UpdateUser{Roles: []string{user.RoleTeacherHomeroom}, IsActive: bPtr(false)}),
			extra: extraTest{wantRoles: []string{user.RoleTeacherHomeroom}, wantActive: bPtr(false)},
		},
		{
			name: "Unknown user", path: "/v1/users/lol", token: getToken(t, admin), wantCode: http.StatusNotFound,
			body:     marchallObj(t, user.UpdateUser{Name: "Lol"}),
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// UpdatedAt changes.. check the updated fields only
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				extra := tt.extra.(extraTest)
				if extra.wantName != "" && usr.Name != extra.wantName {
					t.Errorf("failed! Name = %q; want %q", usr.Name, extra.wantName)
				}
				if extra.wantRoles != nil && !reflect.DeepEqual(usr.Roles, extra.wantRoles) {
					t.Errorf("failed! Roles = %v; want %v", usr.Roles, extra.wantRoles)
				}
				if extra.wantActive != nil && usr.Active() != *extra.wantActive {
					t.Errorf("failed! Active() = %v; want %v", usr.Active(), *extra.wantActive)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDestroy(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + teacher.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users/" + teacher.ID, token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Admin cannot delete self", path: "/v1/users/" + admin.ID, token: getToken(t, admin), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "User deleted", path: "/v1/users/" + teacher.ID, token: getToken(t, admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				if rec.Body.Len() > 0 {
					t.Errorf("failed! body = %v; want empty", rec.Body.String())
				}
				if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: teacher.ID}); err != user.ErrNotFound {
					t.Errorf("failed! err = %v; want %v", err, user.ErrNotFound)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDestroyMultiple(t *testing.T) {
	testutil.ResetDB(t, db)

	usr1 := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	usr2 := testutil.CreateUser(t, usrRepo, "Guru Budi", "gurubudi", "budi@test.id", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	path := func(ids ...string) string {
		v := make(url.Values)
		for _, id := range ids {
			v.Add("id", id)
		}
		return "/v1/users?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Auth required", path: path(usr1.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: path(usr1.ID), token: getToken(t, usr1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Admin cannot delete self", path: path(usr1.ID, admin.ID), token: adminToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "No IDs is a no-op", path: "/v1/users", token: adminToken, wantCode: http.StatusNoContent},
		{name: "Users deleted", path: path(usr1.ID, usr2.ID), token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the self-delete attempt must not have deleted anyone
	if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: admin.ID}); err != nil {
		t.Errorf("GetUser() failed: %v", err)
	}
	for _, id := range []string{usr1.ID, usr2.ID} {
		if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: id}); err != user.ErrNotFound {
			t.Errorf("failed! err = %v; want %v", err, user.ErrNotFound)
		}
	}
}

func Test_userApi_userQueryRoles(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Guru Ayu", "guruayu", "ayu@test.id", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all roles", token: getToken(t, admin), wantCode: http.StatusOK, ordered: true, wantData: marchallObj(t, user.Roles)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/users/roles"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
