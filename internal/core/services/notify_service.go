package services

import (
	"log"

	"solilend/internal/adapters/persistence/models"
)

// Notifier is the outbound message boundary. Actual delivery (email) is an
// external collaborator; the core only decides which event triggers which
// message.
type Notifier interface {
	RegistrationUnderReview(email string)
	AdmissionDecided(member *models.Member, waitingPosition int)
	WaitingListActivated(member *models.Member)
	LoanDecided(loan *models.LoanApplication)
	LoanDisbursed(loan *models.LoanApplication)
	PaymentConfirmed(loan *models.LoanApplication, installmentNumber int)
	InstallmentLate(inst *models.Installment, daysLate int)
}

// logNotifier writes notification events to the application log. It stands in
// for the mail collaborator in development and tests.
type logNotifier struct{}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) RegistrationUnderReview(email string) {
	log.Printf("📧 [notify] registration under review: %s", email)
}

func (n *logNotifier) AdmissionDecided(member *models.Member, waitingPosition int) {
	if waitingPosition > 0 {
		log.Printf("📧 [notify] member %d queued at position %d", member.ID, waitingPosition)
		return
	}
	log.Printf("📧 [notify] member %d activated on admission", member.ID)
}

func (n *logNotifier) WaitingListActivated(member *models.Member) {
	log.Printf("📧 [notify] member %d activated from waiting list", member.ID)
}

func (n *logNotifier) LoanDecided(loan *models.LoanApplication) {
	log.Printf("📧 [notify] loan %d decision: %s", loan.ID, loan.Status)
}

func (n *logNotifier) LoanDisbursed(loan *models.LoanApplication) {
	log.Printf("📧 [notify] loan %d disbursed", loan.ID)
}

func (n *logNotifier) PaymentConfirmed(loan *models.LoanApplication, installmentNumber int) {
	log.Printf("📧 [notify] loan %d installment %d confirmed", loan.ID, installmentNumber)
}

func (n *logNotifier) InstallmentLate(inst *models.Installment, daysLate int) {
	log.Printf("📧 [notify] installment %d late by %d day(s)", inst.ID, daysLate)
}
