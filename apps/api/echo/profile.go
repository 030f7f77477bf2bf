package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
)

type profileApi struct {
	svc       *profile.Service
	academics *academic.Service
}

func registerProfileAPI(g *echo.Group, svc *profile.Service, academics *academic.Service) {
	api := profileApi{svc: svc, academics: academics}

	tg := g.Group("/teachers")
	tg.GET("", api.listTeachers)
	tg.POST("", api.createTeacher)
	tg.GET("/:id", api.retrieveTeacher)
	tg.DELETE("/:id", api.destroyTeacher)
	tg.GET("/:id/dashboard", api.dashboard)
	tg.GET("/:id/classes/:class_id/subjects", api.teacherClassSubjects)
	tg.GET("/:id/classes/:class_id/roster", api.teacherClassRoster)

	sg := g.Group("/students")
	sg.GET("", api.listStudents)
	sg.POST("", api.createStudent)
	sg.GET("/:id", api.retrieveStudent)
	sg.DELETE("/:id", api.destroyStudent)
}

// Teachers

func (api *profileApi) listTeachers(ctx echo.Context) error {
	teachers, err := api.svc.ListTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *profileApi) createTeacher(ctx echo.Context) error {
	var data profile.NewTeacher
	if err := bind(ctx, &data, "NewTeacher"); err != nil {
		return err
	}
	tp, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tp)
}

func (api *profileApi) retrieveTeacher(ctx echo.Context) error {
	tp, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, tp)
}

func (api *profileApi) destroyTeacher(ctx echo.Context) error {
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) dashboard(ctx echo.Context) error {
	dash, err := api.academics.TeacherDashboard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *profileApi) teacherClassSubjects(ctx echo.Context) error {
	subjects, err := api.academics.TeacherClassSubjects(ctx.Request().Context(), ctx.Param("id"), ctx.Param("class_id"))
	if err != nil {
		return errors.Wrap(err, "listing teacher class subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *profileApi) teacherClassRoster(ctx echo.Context) error {
	roster, err := api.academics.TeacherClassRoster(ctx.Request().Context(), ctx.Param("id"), ctx.Param("class_id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher class roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

// Students

func (api *profileApi) listStudents(ctx echo.Context) error {
	students, err := api.svc.ListStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *profileApi) createStudent(ctx echo.Context) error {
	var data profile.NewStudent
	if err := bind(ctx, &data, "NewStudent"); err != nil {
		return err
	}
	sp, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, sp)
}

func (api *profileApi) retrieveStudent(ctx echo.Context) error {
	sp, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, sp)
}

func (api *profileApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
