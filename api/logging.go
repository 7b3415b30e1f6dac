package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"text2phenotype.com/bioscope/logger"
)

var defaultLogger = logger.NewLogger("API")

type endpointLoggerFields struct {
	Method string `json:"method"`
	Url    string `json:"url"`
}

const RequestInfoFieldsKey = "request_info"

func makeRequestLogger(request *http.Request) zerolog.Logger {
	fields := endpointLoggerFields{
		Method: request.Method,
		Url:    request.URL.String(),
	}
	return defaultLogger.
		With().Interface(RequestInfoFieldsKey, fields).Logger()
}

// fail writes an empty error response and logs why.
func fail(w http.ResponseWriter, log *zerolog.Logger, status int, err error, msg string) {
	log.Err(err).Int("status", status).Msg(msg)
	http.Error(w, "", status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging logs the status and duration of every request.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := makeRequestLogger(r)
		log.Info().
			Int("status", rec.status).
			Dur("duration", time.Since(started)).
			Msg("Finished processing request")
	})
}
