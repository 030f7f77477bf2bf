package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

// targetYearRequest is the body of a class promotion.
type targetYearRequest struct {
	TargetYearID string `json:"target_year_id"`
}

func registerAcademicAPI(g *echo.Group, svc *academic.Service) {
	api := academicApi{svc: svc}

	yg := g.Group("/years")
	yg.GET("", api.listYears)
	yg.POST("", api.createYear)
	yg.GET("/current", api.currentYear)
	yg.GET("/:id", api.retrieveYear)
	yg.PUT("/:id", api.updateYear)
	yg.DELETE("/:id", api.destroyYear)

	cg := g.Group("/classes")
	cg.GET("", api.listClasses)
	cg.POST("", api.createClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass)
	cg.DELETE("/:id", api.destroyClass)
	cg.GET("/:id/subjects", api.classSubjects)
	cg.GET("/:id/family-subjects", api.familySubjects)
	cg.GET("/:id/roster", api.classRoster)
	cg.POST("/:id/promote", api.promoteClass)

	sg := g.Group("/subjects")
	sg.POST("", api.createSubject)
	sg.POST("/reuse", api.reuseSubject)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject)
	sg.DELETE("/:id", api.destroySubject)

	ag := g.Group("/assignments")
	ag.GET("", api.listAssignments)
	ag.POST("", api.createAssignment)
	ag.GET("/:id", api.retrieveAssignment)
	ag.PUT("/:id", api.updateAssignment)
	ag.DELETE("/:id", api.destroyAssignment)

	eg := g.Group("/enrollments")
	eg.GET("", api.listEnrollments)
	eg.POST("", api.createEnrollment)
	eg.GET("/:id", api.retrieveEnrollment)
	eg.PUT("/:id", api.updateEnrollment)
	eg.DELETE("/:id", api.destroyEnrollment)

	g.POST("/promotions", api.promote)
}

// Years

func (api *academicApi) listYears(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx, yearOrderingFields...)
	years, err := api.svc.ListYears(ctx.Request().Context(), ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing academic years")
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *academicApi) createYear(ctx echo.Context) error {
	var data academic.NewAcademicYear
	if err := bind(ctx, &data, "NewAcademicYear"); err != nil {
		return err
	}
	year, err := api.svc.CreateYear(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, year)
}

func (api *academicApi) currentYear(ctx echo.Context) error {
	year, err := api.svc.CurrentYear(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting current academic year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *academicApi) retrieveYear(ctx echo.Context) error {
	year, err := api.svc.GetYear(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting academic year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *academicApi) updateYear(ctx echo.Context) error {
	var data academic.UpdateAcademicYear
	if err := bind(ctx, &data, "UpdateAcademicYear"); err != nil {
		return err
	}
	year, err := api.svc.UpdateYear(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating academic year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *academicApi) destroyYear(ctx echo.Context) error {
	if err := api.svc.DeleteYear(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classes

func (api *academicApi) listClasses(ctx echo.Context) error {
	var filter academic.ClassFilter
	if err := bind(ctx, &filter, "ClassFilter"); err != nil {
		return err
	}
	classes, err := api.svc.ListClasses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

// createClasses creates one class per comma separated section;
// the response is 207 when some sections were skipped.
func (api *academicApi) createClasses(ctx echo.Context) error {
	var data academic.NewClassLevel
	if err := bind(ctx, &data, "NewClassLevel"); err != nil {
		return err
	}
	res, err := api.svc.CreateClasses(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating classes")
	}
	code := http.StatusCreated
	if len(res.Skipped) > 0 {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *academicApi) updateClass(ctx echo.Context) error {
	var data academic.UpdateClassLevel
	if err := bind(ctx, &data, "UpdateClassLevel"); err != nil {
		return err
	}
	class, err := api.svc.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *academicApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) classSubjects(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetClass(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting class")
	}
	subjects, err := api.svc.ListSubjects(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) familySubjects(ctx echo.Context) error {
	subjects, err := api.svc.FamilySubjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing family subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) classRoster(ctx echo.Context) error {
	roster, err := api.svc.ClassRoster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *academicApi) promoteClass(ctx echo.Context) error {
	var data targetYearRequest
	if err := bind(ctx, &data, "targetYearRequest"); err != nil {
		return err
	}
	res, err := api.svc.PromoteClass(ctx.Request().Context(), ctx.Param("id"), data.TargetYearID)
	if err != nil {
		return errors.Wrap(err, "promoting class")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Subjects

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := bind(ctx, &data, "NewSubject"); err != nil {
		return err
	}
	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *academicApi) reuseSubject(ctx echo.Context) error {
	var data academic.ReuseSubjectRequest
	if err := bind(ctx, &data, "ReuseSubjectRequest"); err != nil {
		return err
	}
	subj, err := api.svc.ReuseSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "reusing subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *academicApi) retrieveSubject(ctx echo.Context) error {
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *academicApi) updateSubject(ctx echo.Context) error {
	var data academic.UpdateSubject
	if err := bind(ctx, &data, "UpdateSubject"); err != nil {
		return err
	}
	subj, err := api.svc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *academicApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *academicApi) listAssignments(ctx echo.Context) error {
	var filter academic.AssignmentFilter
	if err := bind(ctx, &filter, "AssignmentFilter"); err != nil {
		return err
	}
	assignments, err := api.svc.ListAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *academicApi) createAssignment(ctx echo.Context) error {
	var data academic.NewTeacherAssignment
	if err := bind(ctx, &data, "NewTeacherAssignment"); err != nil {
		return err
	}
	a, err := api.svc.AssignTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *academicApi) retrieveAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *academicApi) updateAssignment(ctx echo.Context) error {
	var data academic.UpdateTeacherAssignment
	if err := bind(ctx, &data, "UpdateTeacherAssignment"); err != nil {
		return err
	}
	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *academicApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

func (api *academicApi) listEnrollments(ctx echo.Context) error {
	var filter academic.EnrollmentFilter
	if err := bind(ctx, &filter, "EnrollmentFilter"); err != nil {
		return err
	}
	enrollments, err := api.svc.ListEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *academicApi) createEnrollment(ctx echo.Context) error {
	var data academic.NewEnrollment
	if err := bind(ctx, &data, "NewEnrollment"); err != nil {
		return err
	}
	e, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *academicApi) retrieveEnrollment(ctx echo.Context) error {
	e, err := api.svc.GetEnrollment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *academicApi) updateEnrollment(ctx echo.Context) error {
	var data academic.UpdateEnrollment
	if err := bind(ctx, &data, "UpdateEnrollment"); err != nil {
		return err
	}
	e, err := api.svc.UpdateEnrollment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *academicApi) destroyEnrollment(ctx echo.Context) error {
	if err := api.svc.DeleteEnrollment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Promotions

func (api *academicApi) promote(ctx echo.Context) error {
	var data academic.PromotionRequest
	if err := bind(ctx, &data, "PromotionRequest"); err != nil {
		return err
	}
	res, err := api.svc.Promote(ctx.Request().Context(), data.EnrollmentIDs, data.TargetYearID)
	if err != nil {
		return errors.Wrap(err, "promoting enrollments")
	}
	return ctx.JSON(http.StatusOK, res)
}
