package view

import (
	"feedsync/internal/cache"
	"feedsync/internal/model"
)

// PrependPost inserts post at the head of the first page. Later pages are
// shared with the prior entry, not copied. An absent feed, or one with no
// pages, is left as it is.
func PrependPost(post model.Post) cache.Updater[*Feed] {
	return func(prior *Feed, ok bool) (*Feed, bool) {
		if !ok || prior == nil || len(prior.Pages) == 0 {
			return prior, false
		}

		first := prior.Pages[0]
		items := make([]model.Post, 0, len(first.Items)+1)
		items = append(items, post)
		items = append(items, first.Items...)

		return withPage(prior, 0, FeedPage{Items: items, NextCursor: first.NextCursor}), true
	}
}

// AppendPage adds a freshly fetched page after the last one.
func AppendPage(page FeedPage) cache.Updater[*Feed] {
	return func(prior *Feed, ok bool) (*Feed, bool) {
		if !ok || prior == nil {
			return prior, false
		}
		pages := make([]FeedPage, 0, len(prior.Pages)+1)
		pages = append(pages, prior.Pages...)
		pages = append(pages, page)
		return &Feed{Pages: pages}, true
	}
}

// PageFromResponse converts an API page into its cached form. The cursor is
// kept only while the API reports more pages. Items is never nil, so an
// emptied page compares equal to the fetched one.
func PageFromResponse(resp *model.FeedPage) FeedPage {
	items := resp.Posts
	if items == nil {
		items = []model.Post{}
	}
	page := FeedPage{Items: items}
	if resp.HasMore {
		page.NextCursor = resp.NextCursor
	}
	return page
}

// RemovePost drops the provisional record with clientID, undoing PrependPost.
func RemovePost(clientID string) cache.Updater[*Feed] {
	return mapFeed(func(p model.Post) (model.Post, bool, bool) {
		if p.Matches(0, clientID) {
			return p, false, true
		}
		return p, true, false
	})
}

// ReplacePost swaps the provisional record with clientID for the confirmed
// post, keeping its list position.
func ReplacePost(clientID string, confirmed model.Post) cache.Updater[*Feed] {
	return mapFeed(func(p model.Post) (model.Post, bool, bool) {
		if p.Matches(0, clientID) {
			return confirmed, true, true
		}
		return p, true, false
	})
}

// ToggleLike flips the like state of postID wherever it appears in the feed.
func ToggleLike(postID int64) cache.Updater[*Feed] {
	return mapFeed(func(p model.Post) (model.Post, bool, bool) {
		if !p.Matches(postID, "") {
			return p, true, false
		}
		return flipLike(p), true, true
	})
}

// AlignLike sets the like state of postID to the authoritative value,
// flipping only the records that disagree.
func AlignLike(postID int64, liked bool) cache.Updater[*Feed] {
	return mapFeed(func(p model.Post) (model.Post, bool, bool) {
		if !p.Matches(postID, "") || p.LikedByMe == liked {
			return p, true, false
		}
		return flipLike(p), true, true
	})
}

// FindPost returns the first record with postID in the feed.
func FindPost(feed *Feed, postID int64) (model.Post, bool) {
	if feed == nil {
		return model.Post{}, false
	}
	for _, page := range feed.Pages {
		for _, p := range page.Items {
			if p.Matches(postID, "") {
				return p, true
			}
		}
	}
	return model.Post{}, false
}

// mapFeed rebuilds only the pages in which fn reports a change. fn returns
// the (possibly replaced) post, whether to keep it, and whether anything
// changed. An unchanged feed is returned as the same value. A rebuilt page
// that ends up empty keeps an empty, non-nil slice.
func mapFeed(fn func(model.Post) (model.Post, bool, bool)) cache.Updater[*Feed] {
	return func(prior *Feed, ok bool) (*Feed, bool) {
		if !ok || prior == nil {
			return prior, false
		}

		next := prior
		for i, page := range prior.Pages {
			var items []model.Post
			changed := false
			for j, p := range page.Items {
				out, keep, diff := fn(p)
				if diff && !changed {
					changed = true
					items = make([]model.Post, j, len(page.Items))
					copy(items, page.Items[:j])
				}
				if changed && keep {
					items = append(items, out)
				}
			}
			if changed {
				next = withPage(next, i, FeedPage{Items: items, NextCursor: page.NextCursor})
			}
		}
		return next, true
	}
}

// withPage returns a copy of feed with page i replaced.
func withPage(feed *Feed, i int, page FeedPage) *Feed {
	pages := make([]FeedPage, len(feed.Pages))
	copy(pages, feed.Pages)
	pages[i] = page
	return &Feed{Pages: pages}
}

func flipLike(p model.Post) model.Post {
	if p.LikedByMe {
		p.LikedByMe = false
		if p.LikeCount > 0 {
			p.LikeCount--
		}
	} else {
		p.LikedByMe = true
		p.LikeCount++
	}
	return p
}
