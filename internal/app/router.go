package app

import (
	"equizz_backend/docs"
	"equizz_backend/internal/config"
	"equizz_backend/internal/middleware"
	"equizz_backend/internal/model"
	"equizz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 学生端（登录即可）
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.GET("/evaluations", c.evaluation.ListForStudent)
		authGroup.GET("/evaluations/:id/eligibility", c.submission.Eligibility)
		authGroup.GET("/quizzes/:quizId/questions", c.catalog.GetStudentQuestions)

		// 匿名提交流程：开始 → 答题 → 提交
		authGroup.POST("/evaluations/:id/session", c.submission.Begin)
		authGroup.GET("/sessions/:sessionId", c.submission.Resume)
		authGroup.PUT("/sessions/:sessionId/answers", c.submission.Answer)
		authGroup.POST("/sessions/:sessionId/submit", c.submission.Finalize)
	}

	// 3. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/quizzes", c.catalog.CreateQuiz)
		admin.GET("/quizzes", c.catalog.ListQuizzes)
		admin.GET("/quizzes/:id", c.catalog.GetQuiz)
		admin.DELETE("/quizzes/:id", c.catalog.DeleteQuiz)
		admin.POST("/questions", c.catalog.CreateQuestion)
		admin.GET("/questions", c.catalog.ListQuestions)
		admin.DELETE("/questions/:id", c.catalog.DeleteQuestion)

		admin.POST("/evaluations", c.evaluation.Create)
		admin.GET("/evaluations", c.evaluation.List)
		admin.GET("/evaluations/:id", c.evaluation.Get)
		admin.POST("/evaluations/:id/force-close", c.evaluation.ForceClose)

		// 结果侧只读匿名数据；没有任何路由触达 session_bindings
		admin.GET("/evaluations/:id/summary", c.results.Summary)
		admin.GET("/evaluations/:id/submissions", c.results.ListSubmissions)
		admin.GET("/evaluations/:id/distribution", c.results.Distribution)
		admin.POST("/evaluations/:id/export", c.results.ExportCSV)
		admin.GET("/sessions/:sessionId/answers", c.results.SessionAnswers)
	}
}
