package academic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cems/core"
)

// PromotionRequest promotes the given enrollments of one class into the next class of TargetYearID.
type PromotionRequest struct {
	EnrollmentIDs []string `json:"enrollment_ids" validate:"dive,uuid"`
	TargetYearID  string   `json:"target_year_id"`
}

type PromotionResult struct {
	Created     int         `json:"created"`
	Skipped     int         `json:"skipped"`
	TargetClass *ClassLevel `json:"target_class"`
}

type promotionReport struct {
	Source  string
	Target  string
	Created int
	Skipped int
}

// checkTargetYear reports why year cannot receive promoted students.
func checkTargetYear(year AcademicYear, today time.Time) error {
	var msg string
	switch {
	case !year.IsCurrent:
		msg = "Target academic year must be marked current before promoting students."
	case !year.HasStarted(today):
		msg = "Cannot promote students into a future academic year."
	case year.HasEnded(today):
		msg = "Cannot promote students into a past academic year."
	default:
		return nil
	}
	return newError(ErrInvalidTargetYear, "target_year_id", msg)
}

// Promote moves enrollments of a single class into the next class (same section) of the target year.
//
// Every student gets a "current" enrollment in the target class, sources being marked "promoted";
// students already enrolled there are skipped and their source left untouched, so promoting twice is harmless.
// Batch preconditions (target year, single class, other year, existing target class) are checked
// before any write, and the whole promotion is a single transaction.
// Once committed, the new roll numbers are mirrored onto the profiles and a report is sent.
func (svc *Service) Promote(ctx context.Context, enrollmentIDs []string, targetYearID string) (PromotionResult, error) {
	var (
		res     PromotionResult
		created []StudentEnrollment
		source  ClassLevel
		target  AcademicYear
	)
	if err := svc.validate.Var(enrollmentIDs, "dive,uuid"); err != nil {
		return res, err
	}

	err := svc.repo.Atomic(ctx, func(repo Repository) error {
		res, created = PromotionResult{}, nil

		// target year
		if targetYearID == "" {
			return newError(ErrInvalidTargetYear, "target_year_id", "Target academic year is required for promotion.")
		}
		var err error
		target, err = repo.GetYear(ctx, targetYearID)
		if errors.Is(err, ErrNotFound) {
			return newError(ErrInvalidTargetYear, "target_year_id", "Target academic year not found.")
		} else if err != nil {
			return errors.Wrap(err, "getting target year")
		}
		today := svc.today()
		if err = checkTargetYear(target, today); err != nil {
			return err
		}

		// fresh sources
		ids := uniqueIDs(enrollmentIDs)
		if len(ids) == 0 {
			return nil
		}
		sources, err := repo.ListEnrollments(ctx, EnrollmentFilter{IDs: ids})
		if err != nil {
			return errors.Wrap(err, "listing enrollments")
		}
		if len(sources) == 0 {
			return nil
		}

		// single source class, from another year
		for _, e := range sources[1:] {
			if e.ClassLevelID != sources[0].ClassLevelID {
				return newError(ErrMultiClassPromotion, core.NonFieldErrors, "Promotions must target a single class at a time.")
			}
		}
		if source, err = repo.GetClass(ctx, sources[0].ClassLevelID); err != nil {
			return errors.Wrap(err, "getting source class")
		}
		if source.AcademicYearID == target.ID {
			return newError(ErrSameYearPromotion, core.NonFieldErrors,
				"Set the next academic year as current before promoting this class.")
		}

		// target class
		targetClass, err := resolveTargetClass(ctx, repo, source, target)
		if err != nil {
			return err
		}
		res.TargetClass = &targetClass

		sortByRollNumber(sources)
		now := svc.timestamp()
		for _, src := range sources {
			_, err := repo.FindEnrollment(ctx, src.StudentID, targetClass.ID, target.ID)
			if err == nil {
				res.Skipped++
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return errors.Wrap(err, "finding target enrollment")
			}

			e := StudentEnrollment{
				ID:             uuid.New().String(),
				StudentID:      src.StudentID,
				ClassLevelID:   targetClass.ID,
				AcademicYearID: target.ID,
				Status:         StatusCurrent,
				EnrolledOn:     null.TimeFrom(today),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err = insertEnrollment(ctx, repo, &e); err != nil {
				return err
			}
			created = append(created, e)
			res.Created++

			if src.Status != StatusPromoted {
				if err = repo.SetEnrollmentStatus(ctx, src.ID, StatusPromoted, now); err != nil {
					return errors.Wrap(err, "promoting enrollment")
				}
			}
		}
		return nil
	})
	if err != nil {
		return PromotionResult{}, err
	}

	if res.TargetClass != nil {
		svc.mirrorRollNumbers(ctx, created...)
		svc.sendPromotionReport(ctx, source, *res.TargetClass, target, res)
	}
	return res, nil
}

// PromoteClass promotes all the current enrollments of a class.
func (svc *Service) PromoteClass(ctx context.Context, classID, targetYearID string) (PromotionResult, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return PromotionResult{}, err
	}
	enrollments, err := svc.repo.ListEnrollments(ctx, EnrollmentFilter{
		ClassLevelID:   class.ID,
		AcademicYearID: class.AcademicYearID,
		Status:         StatusCurrent,
	})
	if err != nil {
		return PromotionResult{}, errors.Wrap(err, "listing enrollments")
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ID)
	}
	return svc.Promote(ctx, ids, targetYearID)
}

// resolveTargetClass finds the successor of source, same section, in year.
func resolveTargetClass(ctx context.Context, repo Repository, source ClassLevel, year AcademicYear) (ClassLevel, error) {
	next, ok := NextClassName(source.Name)
	if ok {
		class, err := repo.FindClass(ctx, next, source.Section, year.ID)
		if err == nil {
			return class, nil
		} else if !errors.Is(err, ErrNotFound) {
			return ClassLevel{}, errors.Wrap(err, "finding target class")
		}
	} else {
		next = "next class"
	}
	return ClassLevel{}, newError(ErrMissingTargetClass, core.NonFieldErrors,
		fmt.Sprintf("Create '%s' for %s (matching section) before running a promotion.", next, year))
}

func (svc *Service) sendPromotionReport(ctx context.Context, source, target ClassLevel, year AcademicYear, res PromotionResult) {
	if svc.mailer == nil || len(svc.admins) == 0 {
		return
	}
	sourceYear, err := svc.repo.GetYear(ctx, source.AcademicYearID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("promotion report: getting academic year: %v", err), err)
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           svc.admins,
		Subject:      fmt.Sprintf("Promotion of %s", source.Label(sourceYear)),
		TemplateName: "promotion_report",
		TemplateData: promotionReport{
			Source:  source.Label(sourceYear),
			Target:  target.Label(year),
			Created: res.Created,
			Skipped: res.Skipped,
		},
	})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	return uniq
}

// sortByRollNumber sorts enrollments by roll number (unset last), then student.
func sortByRollNumber(enrollments []StudentEnrollment) {
	sort.SliceStable(enrollments, func(i, j int) bool {
		return rollLess(enrollments[i], enrollments[j])
	})
}

func rollLess(a, b StudentEnrollment) bool {
	if a.RollNumber.Valid != b.RollNumber.Valid {
		return a.RollNumber.Valid
	}
	if a.RollNumber.Valid && a.RollNumber.Int != b.RollNumber.Int {
		return a.RollNumber.Int < b.RollNumber.Int
	}
	return a.StudentID < b.StudentID
}
