// Command import_register bulk-admits students from a CSV register
// through the running API. Used when migrating a paper or spreadsheet
// register into the system.
//
// Expected CSV header:
//
//	name,guardian_name,phone,address,shift,sheet_no,admission_month,fee,aadhaar_no
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

type summary struct {
	created  int
	restored int
	failed   int
}

func main() {
	var (
		base     string
		csvPath  string
		username string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&csvPath, "csv", "register.csv", "Path to the CSV register")
	flag.StringVar(&username, "user", "admin", "Admin username")
	flag.StringVar(&password, "password", "", "Admin password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if password == "" {
		log.Fatal("password is required")
	}

	client := &http.Client{Timeout: timeout}
	token, err := login(client, base, username, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	rows, header, err := loadRegister(csvPath)
	if err != nil {
		log.Fatalf("failed to read register: %v", err)
	}

	var sum summary
	for i, row := range rows {
		restored, err := admit(client, base, token, header, row)
		if err != nil {
			sum.failed++
			log.Printf("row %d: %v", i+2, err)
			continue
		}
		if restored {
			sum.restored++
		} else {
			sum.created++
		}
	}

	fmt.Printf("created: %d, restored: %d, failed: %d\n", sum.created, sum.restored, sum.failed)
	if sum.failed > 0 {
		os.Exit(1)
	}
}

func login(client *http.Client, base, username, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(base+"/auth/login", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return envelope.Data.AccessToken, nil
}

func loadRegister(path string) ([][]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close() //nolint:errcheck

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("register %s has no data rows", path)
	}
	return rows, header, nil
}

func admit(client *http.Client, base, token string, header, row []string) (bool, error) {
	body := &strings.Builder{}
	w := multipart.NewWriter(body)
	for i, field := range header {
		if i >= len(row) {
			break
		}
		if err := w.WriteField(field, strings.TrimSpace(row[i])); err != nil {
			return false, err
		}
	}
	if err := w.Close(); err != nil {
		return false, err
	}

	req, err := http.NewRequest(http.MethodPost, base+"/students", strings.NewReader(body.String()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusCreated:
		return false, nil
	case http.StatusOK:
		return true, nil
	default:
		data, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
}
