// ============================================================================
// internal/auth/service.go
// Account management: signup, login/logout with audit logging, JWT issuance
// and validation, password changes
// ============================================================================

package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mssola/useragent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"markregister/internal/shared"
)

const queryTimeout = 10 * time.Second

// Service implements account and session management over MongoDB
type Service struct {
	db           *mongo.Database
	config       *shared.Config
	usersCol     *mongo.Collection
	loginLogsCol *mongo.Collection
	visitorsCol  *mongo.Collection
}

// CustomClaims for JWT
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ClientInfo carries request metadata used for audit records
type ClientInfo struct {
	IP        string
	UserAgent string
	URL       string
}

// SignupRequest is the payload for account creation
type SignupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	InstitutionID string `json:"institutionId"`
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *shared.User `json:"user"`
}

// NewService creates a new auth Service instance
func NewService(db *mongo.Database, config *shared.Config) *Service {
	return &Service{
		db:           db,
		config:       config,
		usersCol:     db.Collection(shared.ColUsers),
		loginLogsCol: db.Collection(shared.ColLoginLogs),
		visitorsCol:  db.Collection(shared.ColVisitors),
	}
}

// Signup registers a new user account
func (s *Service) Signup(ctx context.Context, req *SignupRequest, client *ClientInfo) (*shared.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, shared.InvalidArgumentf("username and password are required")
	}
	if req.Role != "" && !shared.IsValidRole(req.Role) {
		return nil, shared.InvalidArgumentf("invalid role %q", req.Role)
	}

	// 1. Reject duplicate usernames
	count, err := shared.CountDocumentsWithTimeout(ctx, s.usersCol, bson.M{"username": req.Username}, queryTimeout)
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("username %s is taken", req.Username)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// 2. Hash password using configured cost
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.Security.BCryptCost)
	if err != nil {
		return nil, shared.Internalf("failed to process password: %v", err)
	}

	role := req.Role
	if role == "" {
		role = shared.RoleIncharge
	}

	user := shared.User{
		ID:            shared.GenerateUserID(),
		Username:      req.Username,
		PasswordHash:  string(hash),
		Name:          req.Name,
		Role:          role,
		InstitutionID: req.InstitutionID,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	if _, err := s.usersCol.InsertOne(queryCtx, user); err != nil {
		return nil, shared.Internalf("failed to create user: %v", err)
	}

	s.RecordVisitor(ctx, client, "/signup")

	log.Printf("INFO: user %s registered (role=%s)", user.Username, user.Role)
	return &user, nil
}

// Login authenticates a user and returns a JWT
func (s *Service) Login(ctx context.Context, username, password string, client *ClientInfo) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, shared.InvalidArgumentf("username and password are required")
	}

	// 1. Find User
	var user shared.User
	err := shared.FindOneWithTimeout(ctx, s.usersCol, bson.M{"username": username}, &user, queryTimeout)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, shared.Unauthenticatedf("invalid credentials")
		}
		return nil, shared.Internalf("database error: %v", err)
	}

	// 2. Check Password (BCrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.Unauthenticatedf("invalid credentials")
	}

	if !user.IsActive {
		return nil, shared.PermissionDeniedf("account is inactive")
	}

	// 3. Generate JWT
	tokenString, expiresAt, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return nil, shared.Internalf("failed to generate token: %v", err)
	}

	// 4. Audit: login log + visitor record. Neither failure should block the
	// login itself.
	osName, browser := parseUserAgent(client)
	entry := shared.LoginLog{
		ID:         shared.GenerateID("LOG"),
		UserID:     user.ID,
		IP:         clientIP(client),
		OS:         osName,
		Browser:    browser,
		LoggedInAt: time.Now(),
	}
	logCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := s.loginLogsCol.InsertOne(logCtx, entry); err != nil {
		log.Printf("Warning: failed to record login for %s: %v", user.Username, err)
	}
	s.RecordVisitor(ctx, client, "/login")

	log.Printf("INFO: user %s logged in", user.Username)
	return &LoginResult{Token: tokenString, ExpiresAt: expiresAt, User: &user}, nil
}

// Logout closes the caller's most recent open login log. Idempotent: a user
// with no open log is still logged out successfully.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return shared.InvalidArgumentf("user id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetSort(bson.D{{Key: "logged_in_at", Value: -1}})
	err := s.loginLogsCol.FindOneAndUpdate(queryCtx,
		bson.M{"user_id": userID, "logged_out_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"logged_out_at": time.Now()}},
		opts,
	).Err()
	if err != nil && err != mongo.ErrNoDocuments {
		return shared.Internalf("failed to logout: %v", err)
	}
	return nil
}

// ValidateToken verifies a JWT and resolves the account behind it
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*shared.User, error) {
	if tokenString == "" {
		return nil, shared.Unauthenticatedf("token missing")
	}

	// 1. Parse and verify signature locally
	token, claims, err := s.parseToken(tokenString)
	if err != nil || !token.Valid {
		return nil, shared.Unauthenticatedf("invalid token")
	}

	// 2. Fetch user details
	var user shared.User
	if err := shared.FindOneWithTimeout(ctx, s.usersCol, bson.M{"_id": claims.UserID}, &user, queryTimeout); err != nil {
		return nil, shared.Unauthenticatedf("user not found")
	}

	if !user.IsActive {
		return nil, shared.PermissionDeniedf("account is inactive")
	}

	return &user, nil
}

// CurrentUser returns the account for an ID, without the password hash check
func (s *Service) CurrentUser(ctx context.Context, userID string) (*shared.User, error) {
	var user shared.User
	err := shared.FindOneWithTimeout(ctx, s.usersCol, bson.M{"_id": userID}, &user, queryTimeout)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, shared.NotFoundf("user %s not found", userID)
		}
		return nil, shared.Internalf("database error: %v", err)
	}
	return &user, nil
}

// ChangePassword updates the caller's own password after verifying the old one
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" || oldPassword == "" || newPassword == "" {
		return shared.InvalidArgumentf("all fields required")
	}

	// 1. Fetch user
	var user shared.User
	if err := shared.FindOneWithTimeout(ctx, s.usersCol, bson.M{"_id": userID}, &user, queryTimeout); err != nil {
		return shared.NotFoundf("user %s not found", userID)
	}

	// 2. Verify old password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return shared.Unauthenticatedf("incorrect old password")
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.setPassword(queryCtx, userID, newPassword)
}

// AdminChangePassword resets any user's password without the old one.
// Caller must already be verified as an admin.
func (s *Service) AdminChangePassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" || newPassword == "" {
		return shared.InvalidArgumentf("user id and new password required")
	}

	count, err := shared.CountDocumentsWithTimeout(ctx, s.usersCol, bson.M{"_id": userID}, queryTimeout)
	if err != nil {
		return shared.Internalf("database error: %v", err)
	}
	if count == 0 {
		return shared.NotFoundf("user %s not found", userID)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.setPassword(queryCtx, userID, newPassword)
}

// GetLoginLogs returns the audit trail of logins, newest first
func (s *Service) GetLoginLogs(ctx context.Context, limit int64) ([]shared.LoginLog, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	cursor, err := s.loginLogsCol.Find(queryCtx, bson.M{}, shared.BuildFindOptions(limit, "logged_in_at", -1))
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	defer cursor.Close(queryCtx)

	var logs []shared.LoginLog
	if err := cursor.All(queryCtx, &logs); err != nil {
		return nil, shared.Internalf("failed to decode login logs: %v", err)
	}
	return logs, nil
}

// GetVisitors returns tracked page hits, newest first
func (s *Service) GetVisitors(ctx context.Context, limit int64) ([]shared.Visitor, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	cursor, err := s.visitorsCol.Find(queryCtx, bson.M{}, shared.BuildFindOptions(limit, "visited_at", -1))
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	defer cursor.Close(queryCtx)

	var visitors []shared.Visitor
	if err := cursor.All(queryCtx, &visitors); err != nil {
		return nil, shared.Internalf("failed to decode visitors: %v", err)
	}
	return visitors, nil
}

// RecordVisitor stores one tracked page hit. Failures are logged, never
// surfaced: analytics must not break the page.
func (s *Service) RecordVisitor(ctx context.Context, client *ClientInfo, url string) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	osName, browser := parseUserAgent(client)
	if client != nil && client.URL != "" {
		url = client.URL
	}
	visitor := shared.Visitor{
		ID:        shared.GenerateID("VIS"),
		IP:        clientIP(client),
		OS:        osName,
		Browser:   browser,
		URL:       url,
		VisitedAt: time.Now(),
	}
	if _, err := s.visitorsCol.InsertOne(queryCtx, visitor); err != nil {
		log.Printf("Warning: failed to record visitor: %v", err)
	}
}

// ============================================================================
// Internal Helpers
// ============================================================================

func (s *Service) setPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.Security.BCryptCost)
	if err != nil {
		return shared.Internalf("failed to process password: %v", err)
	}

	_, err = s.usersCol.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"password_hash": string(hash),
			"updated_at":    time.Now(),
		},
	})
	if err != nil {
		return shared.Internalf("failed to update password: %v", err)
	}
	return nil
}

// generateToken creates a signed JWT
func (s *Service) generateToken(userID, role string) (string, time.Time, error) {
	expirationTime := time.Now().Add(time.Duration(s.config.Security.JWTExpirationHours) * time.Hour)

	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        shared.GenerateID("jti"),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "mark-register",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))

	return tokenString, expirationTime, err
}

// parseToken validates the JWT signature and extracts claims
func (s *Service) parseToken(tokenString string) (*jwt.Token, *CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Security.JWTSecret), nil
	})

	return token, claims, err
}

func parseUserAgent(client *ClientInfo) (osName, browser string) {
	if client == nil || client.UserAgent == "" {
		return "unknown", "unknown"
	}
	ua := useragent.New(client.UserAgent)
	name, version := ua.Browser()
	osName = ua.OS()
	if osName == "" {
		osName = "unknown"
	}
	if name == "" {
		return osName, "unknown"
	}
	return osName, fmt.Sprintf("%s %s", name, version)
}

func clientIP(client *ClientInfo) string {
	if client == nil || client.IP == "" {
		return "unknown"
	}
	return client.IP
}
