package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"qbitsmart/qsw/domain"
)

type release struct {
	TagName    string `json:"tag_name"`
	TarballURL string `json:"tarball_url"`
}

// download stores the newest source archive at dest: the latest published
// release when there is one, the default branch snapshot otherwise.
func (f *Fetcher) download(ctx context.Context, dest string) (domain.Artifact, error) {
	rel, relErr := f.latestRelease(ctx)
	if relErr == nil {
		f.Console.Info("Downloading release %s", rel.TagName)
		if relErr = f.get(ctx, rel.TarballURL, dest); relErr == nil {
			return domain.Artifact{Source: "release", Version: rel.TagName}, nil
		}
	}
	f.Log.Warn().Err(relErr).Msg("release archive unavailable, falling back to branch")

	branchURL := fmt.Sprintf("%s/%s/archive/refs/heads/%s.tar.gz", f.Upstream.WebBase, f.Upstream.Repo, f.Upstream.Branch)
	f.Console.Info("No release found, downloading branch %s", f.Upstream.Branch)
	if err := f.get(ctx, branchURL, dest); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: release: %v; branch: %v", domain.ErrNoArchive, relErr, err)
	}
	return domain.Artifact{Source: "branch", Version: f.Upstream.Branch}, nil
}

func (f *Fetcher) latestRelease(ctx context.Context) (release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", f.Upstream.APIBase, f.Upstream.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return release{}, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return release{}, fmt.Errorf("decode release: %w", err)
	}
	if rel.TarballURL == "" {
		return release{}, errors.New("release has no tarball")
	}
	return rel, nil
}

func (f *Fetcher) get(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return copyTo(dest, resp.Body)
}
