package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var pageParam = regexp.MustCompile(`page=(\d+)`)

// ResolveURL resolves ref against base, returning ref unchanged when either fails to parse
func ResolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// PageNumber returns the value of the first page= parameter in rawURL, or 1 when absent
func PageNumber(rawURL string) int {
	m := pageParam.FindStringSubmatch(rawURL)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return n
}

// PageNumbers returns every page= value found in rawURL
func PageNumbers(rawURL string) []int {
	var pages []int
	for _, m := range pageParam.FindAllStringSubmatch(rawURL, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			pages = append(pages, n)
		}
	}
	return pages
}

// SetPageParam rewrites every page= parameter of rawURL to page, appending one when absent
func SetPageParam(rawURL string, page int) string {
	if pageParam.MatchString(rawURL) {
		return pageParam.ReplaceAllString(rawURL, fmt.Sprintf("page=%d", page))
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spage=%d", rawURL, separator, page)
}
