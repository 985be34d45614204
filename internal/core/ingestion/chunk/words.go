package chunk

import "strings"

// SplitByWords は空白区切りの語を maxWords 件ずつまとめたチャンク列を返す。
// 語の並びはそのまま保たれ、最後のチャンクだけが短くなり得る。
func SplitByWords(text string, maxWords int) []string {
	if maxWords <= 0 {
		return nil
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
