// cmd/main.go

package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/app"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/config"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/controllers"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/lms"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/repositories"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/routes"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/services"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

const cookieExpiryLookahead = 24 * time.Hour

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize tronclass-signin-api:", err)
	}
	defer application.Close()

	userRepo := repositories.NewUserRepository(application.DB)
	cookieRepo := repositories.NewCookieRepository(application.DB)
	absenceRepo := repositories.NewAbsenceRepository(application.DB)
	scanRepo := repositories.NewScanRecordRepository(application.DB)
	attemptRepo := repositories.NewSigninAttemptRepository(application.DB)
	actionLogRepo := repositories.NewActionLogRepository(application.DB)

	lmsClient := lms.NewClient(cfg.LMSBaseURL, cfg.LMSTimeout)

	auditSvc := services.NewAuditService(actionLogRepo)
	userSvc := services.NewUserService(userRepo, cookieRepo, absenceRepo)
	signinSvc := services.NewSigninService(cfg, userRepo, cookieRepo, absenceRepo, scanRepo, attemptRepo, lmsClient)

	healthCtrl := controllers.NewHealthController(application)
	userCtrl := controllers.NewUserController(userSvc, auditSvc)
	signinCtrl := controllers.NewSigninController(signinSvc, auditSvc)
	historyCtrl := controllers.NewHistoryController(attemptRepo, scanRepo)

	router := mux.NewRouter()

	router.HandleFunc(routes.Health, healthCtrl.HealthCheckHandler).Methods(http.MethodGet)

	router.HandleFunc(routes.UserList, userCtrl.ListHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.UserAdd, userCtrl.AddHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserRemove, userCtrl.RemoveHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserRename, userCtrl.RenameHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserRefresh, userCtrl.RefreshCookieHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserAuto, userCtrl.SetAutoHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserAbsenceRemove, userCtrl.RemoveAbsenceHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.UserAbsenceAdd, userCtrl.AddAbsenceHandler).Methods(http.MethodPost)

	router.HandleFunc(routes.Signin, signinCtrl.ScanHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.SigninDigital, signinCtrl.DigitalHandler).Methods(http.MethodPost)

	router.HandleFunc(routes.HistorySignin, historyCtrl.SigninHistoryHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.HistoryScan, historyCtrl.ScanHistoryHandler).Methods(http.MethodGet)

	router.HandleFunc(routes.RepoURL, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("https://github.com/gaojunran/tronclass-signin-api-cqupt"))
	}).Methods(http.MethodGet)

	// Session cookies are refreshed by an external browser job; this sweep
	// only surfaces the ones that job has fallen behind on.
	c := cron.New()
	_, cronErr := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		expiring, e := cookieRepo.ListExpiring(ctx, time.Now().UTC().Add(cookieExpiryLookahead))
		if e != nil {
			utils.Logger.WithError(e).Error("Cookie expiry sweep failed")
			return
		}
		for _, ck := range expiring {
			utils.Logger.Warnf("Cookie for user %s expires at %s; refresh job may be behind", ck.UserID, ck.Expires)
		}
	})
	if cronErr != nil {
		utils.Logger.WithError(cronErr).Fatal("Failed to schedule cookie expiry sweep")
	}
	c.Start()

	allowedOrigins := []string{"*"}
	if cfg.AppUrl != "" {
		allowedOrigins = []string{cfg.AppUrl}
	}
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("tronclass-signin-api failed to start:", err)
	}
}
