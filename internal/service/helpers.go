package service

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"
)

// isStrongPassword validates that a password meets security requirements:
//   - At least 8 characters long
//   - Maximum 72 bytes (bcrypt limitation)
//   - Contains at least one uppercase letter
//   - Contains at least one lowercase letter
//   - Contains at least one digit
//   - Contains at least one special character
func isStrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	// bcrypt has a maximum password length of 72 bytes
	if len([]byte(password)) > 72 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasDigit   bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasDigit && hasSpecial
}

// isValidEmail checks RFC 5322 format and the 254 character limit / Vérifie le format de l'email
func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}

	addr, err := mail.ParseAddress(email)
	// Reject display-name forms such as "Bob <bob@x.mg>"
	return err == nil && addr.Address == email
}

// normalizeEmail trims and lowercases / Nettoie et met en minuscules
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lockEntry tracks a user-specific mutex and its last access time for cleanup.
type lockEntry struct {
	mu       *sync.Mutex
	lastUsed time.Time
}

// userLocks serializes session operations per user / Sérialise les opérations de session par utilisateur
type userLocks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
	idle    time.Duration
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newUserLocks(idle time.Duration) *userLocks {
	l := &userLocks{
		entries: make(map[int64]*lockEntry),
		idle:    idle,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// get retrieves or creates the mutex of a user / Récupère ou crée le mutex d'un utilisateur
func (l *userLocks) get(userID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[userID]
	if !exists {
		entry = &lockEntry{mu: &sync.Mutex{}}
		l.entries[userID] = entry
	}
	entry.lastUsed = time.Now()
	return entry.mu
}

func (l *userLocks) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep(time.Now())
		}
	}
}

// sweep removes locks unused for longer than idle / Supprime les verrous inutilisés
func (l *userLocks) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for userID, entry := range l.entries {
		if now.Sub(entry.lastUsed) > l.idle && entry.mu.TryLock() {
			entry.mu.Unlock()
			delete(l.entries, userID)
			removed++
		}
	}
	return removed
}

func (l *userLocks) close() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// formatLockoutDuration formats a duration into a human-readable string.
// Examples: "1 minute", "15 minutes", "45 seconds"
func formatLockoutDuration(d time.Duration) string {
	if d < time.Minute {
		seconds := int(d.Seconds())
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}

	minutes := int(d.Round(time.Minute).Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
