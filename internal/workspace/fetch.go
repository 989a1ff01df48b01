package workspace

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/makegen-build/makegen/internal/msg"
	"github.com/makegen-build/makegen/internal/registry"
)

// sourceShortcuts expand forge prefixes in remote member sources, e.g.
// gh:user/repo.
var sourceShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

// gitPrefix marks an explicit clone URL: git:https://... or git:git@...
const gitPrefix = "git:"

// isRemote reports whether a member source must be fetched rather than read
// from the workspace tree. Plain http(s) URLs name gzipped tarballs.
func isRemote(source string) bool {
	if strings.HasPrefix(source, gitPrefix) {
		return true
	}
	for shortcut := range sourceShortcuts {
		if strings.HasPrefix(source, shortcut) {
			return true
		}
	}
	return isArchiveURL(source)
}

func isArchiveURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// gitSource is a remote member source resolved to a clone URL plus an
// optional branch or commit pin.
type gitSource struct {
	URL    string
	Branch string
	Commit string
}

// splitPin strips trailing @branch and #commit pins; both may be present,
// like user/repo@branch#commit. An @ belonging to an ssh-style URL (before
// the last path separator) is left alone.
func splitPin(s string) (rest, branch, commit string) {
	rest = s
	if i := strings.LastIndex(rest, "#"); i >= 0 {
		rest, commit = rest[:i], rest[i+1:]
	}
	if i := strings.LastIndex(rest, "@"); i > strings.LastIndex(rest, "/") {
		rest, branch = rest[:i], rest[i+1:]
	}
	return rest, branch, commit
}

// parseSource resolves a remote member source like gh:user/repo@v2 or
// git:https://example.com/repo.git#deadbeef.
func parseSource(source string) (gitSource, error) {
	rest, branch, commit := splitPin(source)

	url := ""
	if strings.HasPrefix(rest, gitPrefix) {
		url = strings.TrimPrefix(rest, gitPrefix)
	} else {
		for shortcut, base := range sourceShortcuts {
			if strings.HasPrefix(rest, shortcut) {
				url = base + strings.TrimPrefix(rest, shortcut)
				break
			}
		}
	}
	if url == "" {
		return gitSource{}, fmt.Errorf("unsupported member source %q", source)
	}
	if !strings.HasSuffix(url, ".git") {
		url += ".git"
	}
	return gitSource{URL: url, Branch: branch, Commit: commit}, nil
}

// fetchMember materializes a remote member in dest: from the local mirror
// registry when the source is mirrored there, by downloading and unpacking
// an archive URL, else by cloning. Clones are shallow unless a commit pin
// requires history.
func fetchMember(source, dest string) error {
	if reg, err := registry.Cached(); err == nil && reg != nil && reg.HasMirror(source) {
		msg.Info("using registry mirror for %s", source)
		return reg.Copy(dest, source)
	}

	if isArchiveURL(source) {
		return fetchArchive(source, dest)
	}

	src, err := parseSource(source)
	if err != nil {
		return err
	}

	opts := &git.CloneOptions{
		URL:      src.URL,
		Progress: &msg.IndentWriter{Indent: "  ", W: os.Stdout},
	}
	if src.Commit == "" {
		opts.Depth = 1
	}
	if src.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainClone(dest, opts)
	if err != nil {
		return fmt.Errorf("cloning %s: %w", src.URL, err)
	}
	if src.Commit != "" {
		wt, err := repo.Worktree()
		if err != nil {
			return err
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(src.Commit)}); err != nil {
			return fmt.Errorf("checking out %s: %w", src.Commit, err)
		}
	}
	return nil
}

var archiveClient = &http.Client{Timeout: 5 * time.Minute}

// fetchArchive downloads a gzipped tarball and unpacks it into dest. The
// manifest is expected at the archive root.
func fetchArchive(source, dest string) error {
	resp, err := archiveClient.Get(source)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", source, resp.Status)
	}

	pb := msg.NewProgressBar(resp.ContentLength, 2, os.Stdout)
	defer pb.Finish()

	if err := extractTarGz(io.TeeReader(resp.Body, pb), dest); err != nil {
		return fmt.Errorf("unpacking %s: %w", source, err)
	}
	return nil
}

// extractTarGz unpacks a gzipped tarball into dest. Only directories and
// regular files are materialized; entries that would land outside dest are
// rejected.
func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry %q escapes the destination", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// symlinks and special files are not meaningful in a manifest tree
			continue
		}
	}
}
