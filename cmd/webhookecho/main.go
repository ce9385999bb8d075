// Webhook echo: a local receiver that logs every replay or bridge payload.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	failAfter := flag.Int64("fail-after", 0, "answer 500 once this many requests were accepted (0 never fails)")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	var received atomic.Int64

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/*", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := received.Add(1)

		ev := log.Info().Int64("n", n).Str("path", r.URL.Path)
		switch {
		case gjson.GetBytes(body, "status").String() == "complete":
			ev.Msg("Replay completed")
		case gjson.GetBytes(body, "source").Exists():
			ev.Str("speaker", gjson.GetBytes(body, "event.speaker").String()).
				Str("text", gjson.GetBytes(body, "event.text").String()).
				Msg("Bridge event")
		case gjson.GetBytes(body, "session_id").Exists():
			ev.Str("session", gjson.GetBytes(body, "session_id").String()).
				Str("time", gjson.GetBytes(body, "body.time_code").String()).
				Str("speaker", gjson.GetBytes(body, "body.speaker").String()).
				Str("sentence", gjson.GetBytes(body, "body.sentence").String()).
				Msg("Replay record")
		default:
			ev.RawJSON("body", compact(body)).Msg("Unrecognised payload")
		}

		if *failAfter > 0 && n > *failAfter {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("addr", *addr).Int64("failAfter", *failAfter).Msg("Webhook echo listening")
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func compact(b []byte) []byte {
	if !json.Valid(b) {
		q, _ := json.Marshal(string(b))
		return q
	}
	return b
}
