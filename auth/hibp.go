package auth

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	hibpRangeURL  = "https://api.pwnedpasswords.com/range/"
	hibpUserAgent = "aliaser/0.1"
)

var hibpHTTPClient = &http.Client{
	Timeout: 4 * time.Second,
}

// CheckHIBP reports how many times pw appears in the Have I Been Pwned
// corpus. Only the first five hex characters of SHA1(pw) leave the machine
// (k-anonymity); the suffix is matched locally against the streamed range.
// Add-Padding hides the true response size from network observers. A count
// of zero means the password was not found.
func CheckHIBP(ctx context.Context, pw string) (int, error) {
	sum := sha1.Sum([]byte(pw))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hibpRangeURL+digest[:5], nil)
	if err != nil {
		return 0, fmt.Errorf("hibp request: %w", err)
	}
	req.Header.Set("User-Agent", hibpUserAgent)
	req.Header.Set("Add-Padding", "true")

	resp, err := hibpHTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("hibp query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("hibp query: unexpected status %s", resp.Status)
	}

	return scanRange(resp.Body, digest[5:])
}

// scanRange walks the SUFFIX:COUNT lines of a range response looking for
// suffix. Padding entries carry a count of zero and fall out naturally.
func scanRange(r io.Reader, suffix string) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		sep := strings.IndexByte(line, ':')
		if sep == -1 || !strings.EqualFold(line[:sep], suffix) {
			continue
		}

		count, err := strconv.Atoi(strings.TrimSpace(line[sep+1:]))
		if err != nil {
			return 0, fmt.Errorf("hibp parse count: %w", err)
		}
		return count, nil
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("hibp read response: %w", err)
	}
	return 0, nil
}
