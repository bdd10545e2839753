package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// MonitorService runs the scheduled sweeps: overdue installment detection,
// expired upload purge, and refresh token cleanup.
type MonitorService struct {
	loanRepo         repositories.LoanRepository
	uploadRepo       repositories.UploadRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	notifier         Notifier
	uploadDir        string
	cron             *cron.Cron
}

// NewMonitorService creates a new monitor service
func NewMonitorService(
	loanRepo repositories.LoanRepository,
	uploadRepo repositories.UploadRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	notifier Notifier,
	uploadDir string,
) *MonitorService {
	return &MonitorService{
		loanRepo:         loanRepo,
		uploadRepo:       uploadRepo,
		refreshTokenRepo: refreshTokenRepo,
		notifier:         notifier,
		uploadDir:        uploadDir,
		cron:             cron.New(),
	}
}

// Start registers and launches the scheduled jobs
func (s *MonitorService) Start() error {
	// Overdue sweep shortly after midnight, cleanups at a quiet hour
	if _, err := s.cron.AddFunc("10 0 * * *", s.runOverdueSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", s.runUploadPurge); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("45 3 * * *", s.runTokenCleanup); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("⏰ Monitor service started (overdue sweep, upload purge, token cleanup)")
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (s *MonitorService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏰ Monitor service stopped")
}

func (s *MonitorService) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.SweepOverdue(ctx, time.Now()); err != nil {
		log.Printf("❌ Overdue sweep failed: %v", err)
	}
}

// SweepOverdue walks every installment past its due date. EN_ATTENTE becomes
// EN_RETARD with a single warning; after DefaultAfterDaysLate late days the
// installment becomes IMPAYEE and the loan escalates to DEFAULT.
func (s *MonitorService) SweepOverdue(ctx context.Context, asOf time.Time) error {
	overdue, err := s.loanRepo.ListOverdueInstallments(ctx, asOf)
	if err != nil {
		return err
	}

	lateCount, defaulted := 0, 0
	for _, inst := range overdue {
		daysLate := int(asOf.Sub(inst.DueDate).Hours() / 24)
		if daysLate < 1 {
			daysLate = 1
		}

		// A proof awaiting staff review keeps its lateness ticking so staff
		// can prioritize, but never turns late or escalates under review.
		if inst.Status == domain.InstallmentConfirmation {
			if _, err := s.loanRepo.TransitionInstallment(ctx, inst.ID,
				[]domain.InstallmentStatus{domain.InstallmentConfirmation},
				map[string]interface{}{"days_late": daysLate}); err != nil {
				log.Printf("❌ Failed to track lateness on installment %d: %v", inst.ID, err)
			}
			continue
		}

		if daysLate >= domain.DefaultAfterDaysLate {
			won, err := s.loanRepo.TransitionInstallment(ctx, inst.ID,
				[]domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentLate},
				map[string]interface{}{
					"status":    domain.InstallmentUnpaid,
					"days_late": daysLate,
				})
			if err != nil {
				log.Printf("❌ Failed to mark installment %d IMPAYEE: %v", inst.ID, err)
				continue
			}
			if !won {
				continue
			}
			// Escalate the loan; a lost CAS just means it already left DISBURSED
			if _, err := s.loanRepo.TransitionStatus(ctx, inst.LoanID, domain.LoanDisbursed, domain.LoanDefault, nil); err != nil {
				log.Printf("❌ Failed to escalate loan %d to DEFAULT: %v", inst.LoanID, err)
				continue
			}
			defaulted++
			continue
		}

		update := map[string]interface{}{
			"status":    domain.InstallmentLate,
			"days_late": daysLate,
		}
		if !inst.WarningSent {
			update["warning_sent"] = true
		}
		won, err := s.loanRepo.TransitionInstallment(ctx, inst.ID,
			[]domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentLate},
			update)
		if err != nil {
			log.Printf("❌ Failed to mark installment %d late: %v", inst.ID, err)
			continue
		}
		if won && !inst.WarningSent {
			s.notifier.InstallmentLate(inst, daysLate)
		}
		if won {
			lateCount++
		}
	}

	if lateCount > 0 || defaulted > 0 {
		log.Printf("⏰ Overdue sweep: %d late, %d defaulted", lateCount, defaulted)
	}
	return nil
}

func (s *MonitorService) runUploadPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.PurgeExpiredUploads(ctx, time.Now()); err != nil {
		log.Printf("❌ Upload purge failed: %v", err)
	}
}

// PurgeExpiredUploads deletes TTL-bound files (selfies) past their expiry,
// both from disk and from the registry.
func (s *MonitorService) PurgeExpiredUploads(ctx context.Context, asOf time.Time) error {
	expired, err := s.uploadRepo.ListExpired(ctx, asOf)
	if err != nil {
		return err
	}

	purged := 0
	for _, file := range expired {
		path := filepath.Join(s.uploadDir, file.FileName)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("❌ Failed to remove file %s: %v", path, err)
			continue
		}
		if err := s.uploadRepo.Delete(ctx, file.ID); err != nil {
			log.Printf("❌ Failed to delete upload record %d: %v", file.ID, err)
			continue
		}
		purged++
	}

	if purged > 0 {
		log.Printf("🧹 Purged %d expired upload(s)", purged)
	}
	return nil
}

func (s *MonitorService) runTokenCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Token cleanup failed: %v", err)
	}
}
