package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email           string
	password        string
	twoFactorSecret string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithTwoFactorSecret enables the second factor with the given TOTP secret
func (b *UserBuilder) WithTwoFactorSecret(secret string) *UserBuilder {
	b.twoFactorSecret = secret
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:               uuid.New(),
		Email:            b.email,
		PasswordHash:     string(hashedPassword),
		TwoFactorEnabled: b.twoFactorSecret != "",
		TwoFactorSecret:  b.twoFactorSecret,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// BuildAndAuthenticate creates a user via the API and returns it with a
// session token.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"email":    b.email,
		"password": b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var sessionResp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}

	userID, err := uuid.Parse(sessionResp.User.ID)
	if err != nil {
		t.Fatalf("failed to parse user id: %v", err)
	}

	return &domain.User{ID: userID, Email: sessionResp.User.Email}, sessionResp.SessionToken
}

// RoomBuilder creates rooms directly in the database
type RoomBuilder struct {
	code         string
	createdBy    *uuid.UUID
	duration     domain.RoomDuration
	allowUploads bool
	expiresAt    *time.Time
}

// NewRoomBuilder creates a new RoomBuilder with default values
func NewRoomBuilder() *RoomBuilder {
	return &RoomBuilder{
		code:     randomCode(),
		duration: domain.RoomDuration24Hours,
	}
}

func (b *RoomBuilder) WithCode(code string) *RoomBuilder {
	b.code = code
	return b
}

func (b *RoomBuilder) WithOwner(ownerID uuid.UUID) *RoomBuilder {
	b.createdBy = &ownerID
	return b
}

func (b *RoomBuilder) WithDuration(d domain.RoomDuration) *RoomBuilder {
	b.duration = d
	return b
}

func (b *RoomBuilder) WithAllowUploads(allow bool) *RoomBuilder {
	b.allowUploads = allow
	return b
}

// Expired makes the room's window already over.
func (b *RoomBuilder) Expired() *RoomBuilder {
	past := time.Now().Add(-time.Minute)
	b.expiresAt = &past
	return b
}

func (b *RoomBuilder) Build(t *testing.T, db *gorm.DB) *domain.Room {
	t.Helper()

	window, _ := b.duration.Window()
	now := time.Now()
	expiresAt := now.Add(window)
	createdAt := now
	if b.expiresAt != nil {
		expiresAt = *b.expiresAt
		createdAt = expiresAt.Add(-window)
	}

	room := &domain.Room{
		ID:           uuid.New(),
		Code:         b.code,
		CreatedBy:    b.createdBy,
		Duration:     b.duration,
		AllowUploads: b.allowUploads,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}

	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room
}

// ViewerBuilder creates viewer identities directly in the database
type ViewerBuilder struct {
	roomID   uuid.UUID
	nickname string
	hash     string
}

func NewViewerBuilder(roomID uuid.UUID) *ViewerBuilder {
	return &ViewerBuilder{
		roomID:   roomID,
		nickname: "viewer",
		hash:     randomHash(),
	}
}

func (b *ViewerBuilder) WithNickname(nickname string) *ViewerBuilder {
	b.nickname = nickname
	return b
}

func (b *ViewerBuilder) Build(t *testing.T, db *gorm.DB) *domain.ViewerIdentity {
	t.Helper()

	now := time.Now()
	viewer := &domain.ViewerIdentity{
		ID:         uuid.New(),
		ViewerHash: b.hash,
		RoomID:     b.roomID,
		Nickname:   b.nickname,
		JoinedAt:   now,
		LastSeenAt: now,
	}

	if err := db.Create(viewer).Error; err != nil {
		t.Fatalf("failed to create viewer: %v", err)
	}
	return viewer
}

func randomCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	id := uuid.New()
	code := make([]byte, 6)
	for i := range code {
		code[i] = alphabet[int(id[i])%len(alphabet)]
	}
	return string(code)
}

func randomHash() string {
	a, b := uuid.New(), uuid.New()
	return fmt.Sprintf("%x%x", a[:], b[:])
}
