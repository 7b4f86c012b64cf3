package client

import "math/rand/v2"

// 昵称词库
var (
	adjectives = []string{
		"Curious", "Dog-eared", "Inky", "Midnight", "Wandering",
		"Bookish", "Quiet", "Restless", "Unabridged", "Well-read",
		"Dusty", "Gilded", "Marginal", "Sleepless", "Footnoted",
	}

	nouns = []string{
		"Bookworm", "Librarian", "Narrator", "Hobbit", "Scribe",
		"Poet", "Bard", "Critic", "Archivist", "Reader",
		"Novelist", "Editor", "Owl", "Quill", "Chapter",
	}
)

// GenerateNickname 生成随机昵称
func GenerateNickname() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return adj + " " + noun
}
