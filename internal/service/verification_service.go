package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

//go:embed templates/otp_email.html
var otpTemplateFS embed.FS

// OTP event labels / Libellés des événements OTP
const (
	otpSent      = "sent"
	otpVerified  = "verified"
	otpFailed    = "failed"
	otpThrottled = "throttled"
)

// OTPMetricsRecorder records sign-up code metrics / Enregistre les métriques des codes
type OTPMetricsRecorder interface {
	RecordOTP(status string)
}

// resendAttempt tracks resend attempts for throttling / Suivi des tentatives de renvoi pour le throttling
type resendAttempt struct {
	count     int       // Number of attempts / Nombre de tentatives
	firstSeen time.Time // First attempt timestamp / Horodatage de la première tentative
	lastSeen  time.Time // Last attempt timestamp / Horodatage de la dernière tentative
}

// VerificationService issues and checks sign-up codes / Émet et vérifie les codes d'inscription
type VerificationService struct {
	otps         ports.OTPRepository
	verification ports.EmailVerificationRepository
	userReader   ports.UserReader
	emailSender  ports.EmailSender
	conf         *config.Config
	template     *template.Template
	metrics      OTPMetricsRecorder

	resendThrottle  map[string]*resendAttempt // email -> attempt tracking
	throttleMutex   sync.Mutex
	cleanupInterval time.Duration
	uniformDelay    time.Duration // Pads answers that must not reveal accounts

	sends sync.WaitGroup
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewVerificationService creates the sign-up code service.
// Returns error if template parsing fails / Retourne une erreur si le parsing du template échoue
func NewVerificationService(
	repo ports.UserRepository,
	otps ports.OTPRepository,
	emailSender ports.EmailSender,
	conf *config.Config,
	metrics OTPMetricsRecorder,
) (*VerificationService, error) {
	tmpl, err := template.ParseFS(otpTemplateFS, "templates/otp_email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse otp email template: %w", err)
	}

	svc := &VerificationService{
		otps:            otps,
		verification:    repo,
		userReader:      repo,
		emailSender:     emailSender,
		conf:            conf,
		template:        tmpl,
		metrics:         metrics,
		resendThrottle:  make(map[string]*resendAttempt),
		cleanupInterval: 10 * time.Minute,
		uniformDelay:    200 * time.Millisecond,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}

	go svc.cleanupExpiredThrottles()

	return svc, nil
}

// Close stops the throttle cleanup and waits for pending emails / Arrête le nettoyage et attend les envois
func (s *VerificationService) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	s.sends.Wait()
}

// RetryAfter is the delay clients should wait before asking for a new code / Délai avant un nouveau code
func (s *VerificationService) RetryAfter() time.Duration {
	return s.conf.OTP.ResendCooldown
}

func (s *VerificationService) record(status string) {
	if s.metrics != nil {
		s.metrics.RecordOTP(status)
	}
}

// hashOTP salts the code with the user id / Sale le code avec l'id utilisateur
func hashOTP(userID int64, code string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10) + ":" + code))
	return hex.EncodeToString(sum[:])
}

// generateOTP returns six random digits / Retourne six chiffres aléatoires
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IssueCode stores a fresh code and emails it; refused within the cooldown / Émet un code et l'envoie
func (s *VerificationService) IssueCode(ctx context.Context, user *domain.User) error {
	last, err := s.otps.LastCreatedAt(ctx, user.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !last.IsZero() && time.Since(last) < s.conf.OTP.ResendCooldown {
		s.record(otpThrottled)
		return ErrOTPCooldown
	}

	code, err := generateOTP()
	if err != nil {
		return apperr.Internal(err)
	}

	now := time.Now().UTC()
	otp := &domain.EmailOTP{
		UserID:    user.ID,
		CodeHash:  hashOTP(user.ID, code),
		ExpiresAt: now.Add(s.conf.OTP.TTL),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		slog.Error("failed to store otp", "user_id", user.ID, "err", err)
		return apperr.Internal(err)
	}

	s.sends.Add(1)
	go s.sendOTPEmailAsync(user.Email, user.FirstName, code)

	s.record(otpSent)
	return nil
}

// sendOTPEmailAsync sends the code by email / Envoie le code par email de façon asynchrone
func (s *VerificationService) sendOTPEmailAsync(email, firstName, code string) {
	defer s.sends.Done()

	// Create context with timeout to prevent goroutine leaks
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data := struct {
		Email     string
		FirstName string
		Code      string
		Minutes   int
	}{
		Email:     email,
		FirstName: firstName,
		Code:      code,
		Minutes:   int(s.conf.OTP.TTL.Minutes()),
	}

	var body bytes.Buffer
	if err := s.template.Execute(&body, data); err != nil {
		slog.Error("failed to render otp email template", "err", err)
		return
	}

	err := s.emailSender.Send(ctx, email, "Votre code de vérification OrientaMada", body.String())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Error("otp email send timed out", "email", email, "timeout", "30s")
		} else {
			slog.Error("failed to send otp email", "email", email, "err", err)
		}
		return
	}
	slog.Info("otp email sent", "email", email)
}

// ResendOTP sends a new code when allowed (timing-safe) / Renvoie un code si autorisé (sécurisé contre l'énumération)
func (s *VerificationService) ResendOTP(ctx context.Context, email string) time.Duration {
	email = normalizeEmail(email)
	retryAfter := s.RetryAfter()

	if !isValidEmail(email) || !s.checkResendThrottle(email) {
		s.pad()
		return retryAfter
	}

	user, err := s.userReader.GetByEmail(ctx, email)
	if err != nil || user.EmailVerified {
		s.pad()
		return retryAfter
	}

	if err := s.IssueCode(ctx, user); err != nil {
		if !errors.Is(err, ErrOTPCooldown) {
			slog.Error("failed to resend otp", "email", email, "err", err)
		}
		s.pad()
	}
	return retryAfter
}

func (s *VerificationService) pad() {
	if s.uniformDelay > 0 {
		time.Sleep(s.uniformDelay)
	}
}

// VerifyOTP checks a code and marks the email verified / Vérifie un code et valide l'email
func (s *VerificationService) VerifyOTP(ctx context.Context, email, code string) (*domain.User, error) {
	user, err := s.userReader.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrInvalidOTP
		}
		return nil, apperr.FromRepository(err, "user", apperr.OpRead)
	}
	if user.EmailVerified {
		return nil, ErrInvalidOTP
	}

	otp, err := s.otps.GetActive(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrInvalidOTP
		}
		return nil, apperr.FromRepository(err, "otp", apperr.OpRead)
	}

	now := time.Now()
	if !otp.IsUsable(now, s.conf.OTP.MaxAttempts) {
		s.record(otpFailed)
		return nil, ErrInvalidOTP
	}

	// The attempt is claimed before the comparison: concurrent guesses share the cap
	if err := s.otps.ClaimAttempt(ctx, otp.ID, s.conf.OTP.MaxAttempts); err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			s.record(otpFailed)
			return nil, ErrInvalidOTP
		}
		return nil, apperr.FromRepository(err, "otp", apperr.OpWrite)
	}

	if subtle.ConstantTimeCompare([]byte(hashOTP(user.ID, code)), []byte(otp.CodeHash)) != 1 {
		if otp.Attempts+1 >= s.conf.OTP.MaxAttempts {
			// Burnt: the user must ask for a new code
			if err := s.otps.Consume(ctx, otp.ID, now); err != nil {
				slog.Error("failed to burn otp", "user_id", user.ID, "err", err)
			}
			slog.Warn("otp burnt after too many attempts", "user_id", user.ID)
		}
		s.record(otpFailed)
		return nil, ErrInvalidOTP
	}

	if err := s.otps.Consume(ctx, otp.ID, now); err != nil {
		// Lost a race with a concurrent verification
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrInvalidOTP
		}
		return nil, apperr.Internal(err)
	}
	if err := s.verification.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, apperr.FromRepository(err, "user", apperr.OpWrite)
	}

	s.record(otpVerified)
	user.EmailVerified = true
	return user, nil
}

// checkResendThrottle caps resends per email within the window.
// Returns true if allowed, false if throttled / Vérifie si le renvoi est autorisé
func (s *VerificationService) checkResendThrottle(email string) bool {
	s.throttleMutex.Lock()
	defer s.throttleMutex.Unlock()

	now := time.Now()
	attempt, exists := s.resendThrottle[email]

	if !exists || now.Sub(attempt.firstSeen) >= s.conf.OTP.ResendWindow {
		s.resendThrottle[email] = &resendAttempt{
			count:     1,
			firstSeen: now,
			lastSeen:  now,
		}
		return true
	}

	if attempt.count >= s.conf.OTP.ResendMaxAttempts {
		remainingTime := s.conf.OTP.ResendWindow - now.Sub(attempt.firstSeen)
		slog.Warn("otp resend throttled",
			"email", email,
			"attempts", attempt.count,
			"remaining_window", remainingTime.Round(time.Second).String(),
		)
		s.record(otpThrottled)
		return false
	}

	attempt.count++
	attempt.lastSeen = now
	return true
}

// cleanupExpiredThrottles periodically removes expired throttle entries / Nettoie périodiquement les entrées expirées
func (s *VerificationService) cleanupExpiredThrottles() {
	defer close(s.done)
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepThrottles(time.Now())
		}
	}
}

func (s *VerificationService) sweepThrottles(now time.Time) {
	s.throttleMutex.Lock()
	defer s.throttleMutex.Unlock()

	removed := 0
	for email, attempt := range s.resendThrottle {
		if now.Sub(attempt.lastSeen) >= s.conf.OTP.ResendWindow {
			delete(s.resendThrottle, email)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("cleaned up expired resend throttle entries", "count", removed)
	}
}
