package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/Lavizord/crash-server/cmd/wsapi/handlers"
	"github.com/Lavizord/crash-server/internal/config"
)

func main() {
	config.LoadConfig()
	ports := config.Cfg.Services["wsapi"].Ports
	if len(ports) == 0 {
		log.Fatal("[wsapi] - no ports configured for wsapi\n")
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	http.HandleFunc("/ws", handlers.HandleConnection)

	certPath := os.Getenv("SSL_CERT_PATH")
	keyPath := os.Getenv("SSL_KEY_PATH")
	if certPath != "" && keyPath != "" {
		if len(ports) < 2 {
			log.Fatal("[wsapi] - TLS enabled but no second port configured\n")
		}
		addr := fmt.Sprintf(":%d", ports[1])
		log.Printf("[wsapi] - serving websocket clients over TLS on %s\n", addr)
		log.Fatal(http.ListenAndServeTLS(addr, certPath, keyPath, nil))
	}

	addr := fmt.Sprintf(":%d", ports[0])
	log.Printf("[wsapi] - SSL cert paths unset, serving websocket clients over plain HTTP on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
