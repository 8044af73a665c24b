package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndLookupUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &User{
		TenantID: "0",
		Email:    "Alice@Example.COM",
		Phone:    "+15550100",
		Roles:    []string{"member"},
		Metadata: map[string]string{"plan": "free"},
	}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated ID")
	}
	if u.Status != StatusActive {
		t.Fatalf("expected default status active, got %q", u.Status)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	// email lookup is case-insensitive
	got, err := m.GetUserByEmail(ctx, "0", "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user: %q", got.ID)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", got.Email)
	}

	byPhone, err := m.GetUserByPhone(ctx, "0", "+15550100")
	if err != nil {
		t.Fatalf("GetUserByPhone: %v", err)
	}
	if byPhone.ID != u.ID {
		t.Fatalf("wrong user by phone: %q", byPhone.ID)
	}

	byID, err := m.GetUserByID(ctx, "0", u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Fatalf("unexpected email: %q", byID.Email)
	}
}

func TestCreateUserDuplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateUser(ctx, &User{TenantID: "0", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := m.CreateUser(ctx, &User{TenantID: "0", Email: "ALICE@example.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// same email in another tenant is fine
	if err := m.CreateUser(ctx, &User{TenantID: "acme", Email: "alice@example.com"}); err != nil {
		t.Fatalf("cross-tenant create: %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &User{TenantID: "0", Email: "alice@example.com", Roles: []string{"member"}}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := m.GetUserByID(ctx, "0", u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	got.Roles[0] = "admin"
	got.Email = "mallory@example.com"

	again, err := m.GetUserByID(ctx, "0", u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if again.Roles[0] != "member" || again.Email != "alice@example.com" {
		t.Fatal("mutating a returned record leaked into the store")
	}
}

func TestUpdateUserReindexes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &User{TenantID: "0", Email: "alice@example.com", Phone: "+15550100"}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u.Email = "alice2@example.com"
	u.Phone = "+15550199"
	if err := m.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := m.GetUserByEmail(ctx, "0", "alice@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old email should be unindexed, got %v", err)
	}
	if _, err := m.GetUserByEmail(ctx, "0", "alice2@example.com"); err != nil {
		t.Fatalf("new email lookup: %v", err)
	}
	if _, err := m.GetUserByPhone(ctx, "0", "+15550100"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old phone should be unindexed, got %v", err)
	}
	if _, err := m.GetUserByPhone(ctx, "0", "+15550199"); err != nil {
		t.Fatalf("new phone lookup: %v", err)
	}

	if err := m.UpdateUser(ctx, &User{TenantID: "0", ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id := &Identity{Provider: "google", ProviderUserID: "g-123", UserID: "u1", TenantID: "0"}
	if err := m.LinkIdentity(ctx, id); err != nil {
		t.Fatalf("LinkIdentity: %v", err)
	}
	if id.ID == "" || id.CreatedAt.IsZero() {
		t.Fatal("expected generated ID and timestamp")
	}

	err := m.LinkIdentity(ctx, &Identity{Provider: "google", ProviderUserID: "g-123", UserID: "u2"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := m.FindIdentity(ctx, "google", "g-123")
	if err != nil {
		t.Fatalf("FindIdentity: %v", err)
	}
	if found.UserID != "u1" {
		t.Fatalf("wrong user: %q", found.UserID)
	}

	if err := m.LinkIdentity(ctx, &Identity{Provider: "github", ProviderUserID: "gh-9", UserID: "u1"}); err != nil {
		t.Fatalf("LinkIdentity: %v", err)
	}
	list, err := m.IdentitiesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("IdentitiesForUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(list))
	}

	if err := m.UnlinkIdentity(ctx, "google", "g-123"); err != nil {
		t.Fatalf("UnlinkIdentity: %v", err)
	}
	if _, err := m.FindIdentity(ctx, "google", "g-123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after unlink, got %v", err)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d := &TOTPDevice{TenantID: "0", UserID: "u1", Label: "phone", Secret: "s3cret"}
	if err := m.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected generated device ID")
	}

	list, err := m.Devices(ctx, "0", "u1")
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(list) != 1 || list[0].Verified {
		t.Fatalf("expected one unverified device, got %+v", list)
	}

	if err := m.ConfirmDevice(ctx, "0", "u1", d.ID); err != nil {
		t.Fatalf("ConfirmDevice: %v", err)
	}
	if err := m.TouchDevice(ctx, "0", "u1", d.ID); err != nil {
		t.Fatalf("TouchDevice: %v", err)
	}

	list, _ = m.Devices(ctx, "0", "u1")
	if !list[0].Verified || list[0].LastUsedAt.IsZero() {
		t.Fatalf("expected verified, touched device, got %+v", list[0])
	}

	if err := m.ConfirmDevice(ctx, "0", "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.DeleteDevice(ctx, "0", "u1", d.ID); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
	if err := m.DeleteDevice(ctx, "0", "u1", d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	if err := m.CreateDevice(ctx, &TOTPDevice{TenantID: "0", UserID: "u1", Label: "a"}); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if err := m.CreateDevice(ctx, &TOTPDevice{TenantID: "0", UserID: "u1", Label: "b"}); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if err := m.DeleteDevices(ctx, "0", "u1"); err != nil {
		t.Fatalf("DeleteDevices: %v", err)
	}
	list, _ = m.Devices(ctx, "0", "u1")
	if len(list) != 0 {
		t.Fatalf("expected no devices, got %d", len(list))
	}
}
