package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/mocks"
	"go.uber.org/goleak"
)

var otpInBody = regexp.MustCompile(`>(\d{6})<`)

type otpFixture struct {
	svc     *VerificationService
	users   *mocks.MockUserRepository
	otps    *mocks.MockOTPRepository
	sender  *mocks.MockEmailSender
	metrics *mocks.MockMetrics
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	f := &otpFixture{
		users:   mocks.NewMockUserRepository(),
		otps:    mocks.NewMockOTPRepository(),
		sender:  mocks.NewMockEmailSender(),
		metrics: mocks.NewMockMetrics(),
	}
	svc, err := NewVerificationService(f.users, f.otps, f.sender, testConfig(), f.metrics)
	if err != nil {
		t.Fatalf("NewVerificationService() error = %v", err)
	}
	svc.uniformDelay = 0
	t.Cleanup(svc.Close)
	f.svc = svc
	return f
}

// waitCode returns the code of the next email / Retourne le code du prochain email
func (f *otpFixture) waitCode(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	email, ok := f.sender.Wait(ctx)
	if !ok {
		t.Fatal("no email sent")
	}
	m := otpInBody.FindStringSubmatch(email.Body)
	if m == nil {
		t.Fatalf("no code in email body: %s", email.Body)
	}
	return m[1]
}

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		code, err := generateOTP()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}

func TestHashOTPIsSaltedWithUser(t *testing.T) {
	if hashOTP(1, "123456") == hashOTP(2, "123456") {
		t.Error("same code for two users must hash differently")
	}
	if hashOTP(1, "123456") != hashOTP(1, "123456") {
		t.Error("hash must be deterministic")
	}
}

func TestVerificationService_IssueCode(t *testing.T) {
	f := newOTPFixture(t)
	user := mockedUser(0, "rija@univ.mg", false)
	f.users.Add(user)

	if err := f.svc.IssueCode(context.Background(), user); err != nil {
		t.Fatalf("IssueCode() error = %v", err)
	}
	code := f.waitCode(t)

	stored, ok := f.otps.Latest(user.ID)
	if !ok {
		t.Fatal("no code stored")
	}
	if stored.CodeHash == code || stored.CodeHash != hashOTP(user.ID, code) {
		t.Error("stored value must be the salted hash of the emailed code")
	}
	if got := time.Until(stored.ExpiresAt); got < 9*time.Minute || got > 10*time.Minute {
		t.Errorf("code expires in %v, want about 10m", got)
	}
	if f.metrics.OTPCount("sent") != 1 {
		t.Errorf("otp metrics = %v", f.metrics.OTPEvents)
	}

	// Within the cooldown nothing new goes out
	if err := f.svc.IssueCode(context.Background(), user); !errors.Is(err, ErrOTPCooldown) {
		t.Fatalf("second IssueCode() error = %v, want cooldown", err)
	}
	if f.otps.CreateCalls != 1 {
		t.Errorf("codes stored = %d, want 1", f.otps.CreateCalls)
	}
	if f.metrics.OTPCount("throttled") != 1 {
		t.Errorf("throttle not recorded: %v", f.metrics.OTPEvents)
	}
}

func TestVerificationService_VerifyOTP(t *testing.T) {
	f := newOTPFixture(t)
	user := mockedUser(0, "rija@univ.mg", false)
	f.users.Add(user)
	ctx := context.Background()

	if err := f.svc.IssueCode(ctx, user); err != nil {
		t.Fatal(err)
	}
	code := f.waitCode(t)

	verified, err := f.svc.VerifyOTP(ctx, "RIJA@univ.mg", code)
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if !verified.EmailVerified || !f.users.Users[user.ID].EmailVerified {
		t.Error("user should be verified")
	}
	if f.metrics.OTPCount("verified") != 1 {
		t.Errorf("otp metrics = %v", f.metrics.OTPEvents)
	}

	// Codes are single use
	if _, err := f.svc.VerifyOTP(ctx, user.Email, code); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("second VerifyOTP() error = %v, want invalid otp", err)
	}
}

func TestVerificationService_VerifyOTPBurnsAfterMaxAttempts(t *testing.T) {
	f := newOTPFixture(t)
	user := mockedUser(0, "rija@univ.mg", false)
	f.users.Add(user)
	ctx := context.Background()

	if err := f.svc.IssueCode(ctx, user); err != nil {
		t.Fatal(err)
	}
	code := f.waitCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < f.svc.conf.OTP.MaxAttempts; i++ {
		if _, err := f.svc.VerifyOTP(ctx, user.Email, wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: error = %v, want invalid otp", i+1, err)
		}
	}

	if _, err := f.svc.VerifyOTP(ctx, user.Email, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("burnt code accepted: %v", err)
	}
	if f.users.Users[user.ID].EmailVerified {
		t.Error("user must stay unverified")
	}
	if f.metrics.OTPCount("failed") != f.svc.conf.OTP.MaxAttempts {
		t.Errorf("failed count = %d", f.metrics.OTPCount("failed"))
	}
}

// staleOTPs serves the code as every concurrent verifier reads it, before any attempt was counted
type staleOTPs struct {
	*mocks.MockOTPRepository
}

func (r staleOTPs) GetActive(ctx context.Context, userID int64) (*domain.EmailOTP, error) {
	otp, err := r.MockOTPRepository.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot := *otp
	snapshot.Attempts = 0
	return &snapshot, nil
}

func TestVerificationService_VerifyOTPCapsConcurrentGuesses(t *testing.T) {
	f := newOTPFixture(t)
	svc, err := NewVerificationService(f.users, staleOTPs{f.otps}, f.sender, testConfig(), f.metrics)
	if err != nil {
		t.Fatal(err)
	}
	svc.uniformDelay = 0
	t.Cleanup(svc.Close)

	user := mockedUser(0, "rija@univ.mg", false)
	f.users.Add(user)
	ctx := context.Background()

	if err := svc.IssueCode(ctx, user); err != nil {
		t.Fatal(err)
	}
	code := f.waitCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	maxAttempts := svc.conf.OTP.MaxAttempts
	for i := 0; i < 2*maxAttempts; i++ {
		if _, err := svc.VerifyOTP(ctx, user.Email, wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("guess %d: error = %v, want invalid otp", i+1, err)
		}
	}
	if got := f.otps.Codes[0].Attempts; got != maxAttempts {
		t.Errorf("attempts = %d, want %d", got, maxAttempts)
	}

	if _, err := svc.VerifyOTP(ctx, user.Email, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("code accepted after the attempt cap: %v", err)
	}
	if f.users.Users[user.ID].EmailVerified {
		t.Error("user must stay unverified")
	}
}

func TestVerificationService_VerifyOTPExpired(t *testing.T) {
	f := newOTPFixture(t)
	user := mockedUser(0, "rija@univ.mg", false)
	f.users.Add(user)
	ctx := context.Background()

	if err := f.svc.IssueCode(ctx, user); err != nil {
		t.Fatal(err)
	}
	code := f.waitCode(t)
	f.otps.Codes[0].ExpiresAt = time.Now().Add(-time.Second)

	if _, err := f.svc.VerifyOTP(ctx, user.Email, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expired code: error = %v, want invalid otp", err)
	}
}

func TestVerificationService_VerifyOTPUnknownOrVerified(t *testing.T) {
	f := newOTPFixture(t)
	f.users.Add(mockedUser(0, "done@univ.mg", true))
	f.users.Add(mockedUser(0, "pending@univ.mg", false))

	tests := []struct {
		name  string
		email string
	}{
		{name: "unknown email", email: "nobody@univ.mg"},
		{name: "already verified", email: "done@univ.mg"},
		{name: "no code issued", email: "pending@univ.mg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.VerifyOTP(context.Background(), tt.email, "123456"); !errors.Is(err, ErrInvalidOTP) {
				t.Errorf("error = %v, want invalid otp", err)
			}
		})
	}
}

func TestVerificationService_ResendOTP(t *testing.T) {
	t.Run("unknown email answers the same", func(t *testing.T) {
		f := newOTPFixture(t)
		retry := f.svc.ResendOTP(context.Background(), "nobody@univ.mg")
		if retry != 30*time.Second {
			t.Errorf("retry after = %v, want 30s", retry)
		}
		if len(f.sender.Sent()) != 0 {
			t.Error("no email expected")
		}
	})

	t.Run("resend within cooldown sends nothing", func(t *testing.T) {
		f := newOTPFixture(t)
		user := mockedUser(0, "rija@univ.mg", false)
		f.users.Add(user)

		f.svc.ResendOTP(context.Background(), user.Email)
		f.waitCode(t)
		f.svc.ResendOTP(context.Background(), user.Email)
		f.svc.Close()

		if n := len(f.sender.Sent()); n != 1 {
			t.Errorf("emails sent = %d, want 1", n)
		}
	})

	t.Run("resend after cooldown replaces the code", func(t *testing.T) {
		f := newOTPFixture(t)
		user := mockedUser(0, "rija@univ.mg", false)
		f.users.Add(user)
		ctx := context.Background()

		f.svc.ResendOTP(ctx, user.Email)
		first := f.waitCode(t)
		f.otps.Codes[0].CreatedAt = time.Now().Add(-time.Minute)

		f.svc.ResendOTP(ctx, user.Email)
		second := f.waitCode(t)

		if first != second {
			if _, err := f.svc.VerifyOTP(ctx, user.Email, first); !errors.Is(err, ErrInvalidOTP) {
				t.Errorf("replaced code still valid: %v", err)
			}
		}
		if _, err := f.svc.VerifyOTP(ctx, user.Email, second); err != nil {
			t.Errorf("new code rejected: %v", err)
		}
	})

	t.Run("verified users get nothing", func(t *testing.T) {
		f := newOTPFixture(t)
		f.users.Add(mockedUser(0, "done@univ.mg", true))
		f.svc.ResendOTP(context.Background(), "done@univ.mg")
		f.svc.Close()
		if len(f.sender.Sent()) != 0 {
			t.Error("no email expected")
		}
	})
}

func TestVerificationService_ResendThrottle(t *testing.T) {
	f := newOTPFixture(t)
	limit := f.svc.conf.OTP.ResendMaxAttempts

	for i := 0; i < limit; i++ {
		if !f.svc.checkResendThrottle("rija@univ.mg") {
			t.Fatalf("attempt %d throttled too early", i+1)
		}
	}
	if f.svc.checkResendThrottle("rija@univ.mg") {
		t.Fatal("attempt over the limit allowed")
	}
	if !f.svc.checkResendThrottle("other@univ.mg") {
		t.Fatal("throttle must be per email")
	}

	f.svc.sweepThrottles(time.Now().Add(2 * time.Hour))
	if !f.svc.checkResendThrottle("rija@univ.mg") {
		t.Error("sweep should have reset the throttle")
	}
}

func TestVerificationService_CloseStopsGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	users := mocks.NewMockUserRepository()
	svc, err := NewVerificationService(users, mocks.NewMockOTPRepository(), mocks.NewMockEmailSender(), testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	user := mockedUser(0, "rija@univ.mg", false)
	users.Add(user)
	if err := svc.IssueCode(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	svc.Close()
}
