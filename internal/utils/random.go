package utils

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var firstNames = []string{
	"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy",
	"mallory", "nia", "oscar", "peggy", "quinn", "rupert", "sybil", "trent", "uma", "victor",
}

var lastNames = []string{
	"smith", "jones", "taylor", "brown", "wilson", "evans", "thomas", "roberts", "walker", "wright",
}

var digits = "0123456789"

func GenerateRandomUsername() string {
	first := firstNames[rand.Intn(len(firstNames))]
	last := lastNames[rand.Intn(len(lastNames))]

	username := first + "." + last[:rand.Intn(len(last))+1]

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// seeded accounts are mostly members
var seedRoles = []domain.Role{
	domain.RoleMember,
	domain.RoleMember,
	domain.RoleMember,
	domain.RoleManager,
}

func GenerateRandomRole() domain.Role {
	return seedRoles[rand.Intn(len(seedRoles))]
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	username := GenerateRandomUsername()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var (
	incidentSubjects = []string{"Disk", "Router", "Mail relay", "VPN gateway", "Backup job", "Print server", "Wi-Fi controller", "Database"}
	incidentFaults   = []string{"is down", "is unreachable", "reports errors", "is running slow", "failed overnight", "is out of space"}
)

// GenerateRandomIncident fills the descriptive fields only; the caller owns the lifecycle fields.
func GenerateRandomIncident() *domain.Incident {
	subject := incidentSubjects[rand.Intn(len(incidentSubjects))]
	fault := incidentFaults[rand.Intn(len(incidentFaults))]

	return &domain.Incident{
		Title:        fmt.Sprintf("%s %s", subject, fault),
		Description:  fmt.Sprintf("%s %s. Ticket ref %s.", subject, fault, strings.ToUpper(uuid.NewString()[:8])),
		Priority:     domain.Priorities[rand.Intn(len(domain.Priorities))],
		IncidentType: domain.IncidentTypes[rand.Intn(len(domain.IncidentTypes))],
	}
}

func GenerateRandomStatus() domain.Status {
	return domain.Statuses[rand.Intn(len(domain.Statuses))]
}

// GenerateRandomOTP returns six decimal digits from crypto/rand.
func GenerateRandomOTP() (string, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
