// Runs a throwaway PostgreSQL container for the pgstore tests
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

const (
	dockerExecutable = "docker"
	containerName    = "cardpay-postgres"
	image            = "postgres:16-alpine"
)

func main() {
	port := flag.String("port", "55432", "Host port for PostgreSQL")
	password := flag.String("password", "cardpay", "Password of the postgres user")
	flag.Parse()

	fmt.Printf("Starting %s on port %s...\n", image, *port)

	cmd := exec.Command(dockerExecutable, "run",
		"--rm",
		"--name", containerName,
		"-e", "POSTGRES_PASSWORD="+*password,
		"-e", "POSTGRES_DB=cardpay",
		"-p", "127.0.0.1:"+*port+":5432",
		image,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	if err != nil {
		log.Fatalf("Error starting %s: %v", image, err)
	}

	defer func() {
		fmt.Println("Stopping PostgreSQL...")
		stop := exec.Command(dockerExecutable, "stop", containerName)
		if err := stop.Run(); err != nil {
			log.Printf("Error stopping container: %v", err)
		}
		_ = cmd.Wait()
	}()

	fmt.Println("\nRun the storage tests with:")
	fmt.Printf("\tCARDPAY_POSTGRES_URL=postgres://postgres:%s@127.0.0.1:%s/cardpay?sslmode=disable go test ./storage/pgstore/...\n", *password, *port)
	fmt.Println("Press Ctrl+C to stop the container.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nReceived termination signal. Shutting down...")
}
