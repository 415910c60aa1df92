package gcp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/api/option"
)

// DiscoverCredentials locates the service-account key every tool needs before
// doing any work. GOOGLE_APPLICATION_CREDENTIALS wins when set; otherwise the
// project root is scanned for a Firebase Admin SDK key file, the way the
// content tooling has always been run. Returns the client option and the path
// it resolved to.
func DiscoverCredentials(projectRoot string) (option.ClientOption, string, error) {
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS points at %s, which is not readable: %w", path, err)
		}
		return option.WithCredentialsFile(path), path, nil
	}

	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan project root %s for a key file: %w", projectRoot, err)
	}

	var keyFiles []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.Contains(name, "firebase-adminsdk") && strings.HasSuffix(name, ".json") {
			keyFiles = append(keyFiles, name)
		}
	}
	if len(keyFiles) == 0 {
		return nil, "", fmt.Errorf("no Google Cloud credentials found: set GOOGLE_APPLICATION_CREDENTIALS, "+
			"or download a service-account key from the Firebase console and place the "+
			"*-firebase-adminsdk-*.json file in %s", projectRoot)
	}
	sort.Strings(keyFiles)

	path := filepath.Join(projectRoot, keyFiles[0])
	return option.WithCredentialsFile(path), path, nil
}
