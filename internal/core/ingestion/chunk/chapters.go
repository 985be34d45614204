package chunk

// ExtractTopicChunks は Topics → Sub-topics の順にサブトピック本文を分割する。
// 本文が空のサブトピックはチャンクを生成しない。
func ExtractTopicChunks(chapters *Chapters, maxWords int) []TopicChunk {
	if chapters.IsEmpty() {
		return nil
	}

	var chunks []TopicChunk
	for _, topic := range chapters.Topics {
		for _, sub := range topic.SubTopics {
			if sub.Content == "" {
				continue
			}
			for _, text := range SplitByWords(sub.Content, maxWords) {
				chunks = append(chunks, TopicChunk{
					Text:          text,
					TopicTitle:    topic.Title,
					SubtopicTitle: sub.Title,
				})
			}
		}
	}
	return chunks
}

// DecodeChapters はパース済み JSON 値を Chapters に変換する。
// マッピング以外の値は (nil, false)。形の崩れた Topic / Sub-topic は読み飛ばす。
func DecodeChapters(v any) (*Chapters, bool) {
	root, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	chapters := &Chapters{}
	topics, _ := root["Topics"].([]any)
	for _, rawTopic := range topics {
		topicMap, ok := rawTopic.(map[string]any)
		if !ok {
			continue
		}
		topic := Topic{Title: stringField(topicMap, "title")}
		subs, _ := topicMap["Sub-topics"].([]any)
		for _, rawSub := range subs {
			subMap, ok := rawSub.(map[string]any)
			if !ok {
				continue
			}
			topic.SubTopics = append(topic.SubTopics, SubTopic{
				Title:   stringField(subMap, "title"),
				Content: stringField(subMap, "content"),
			})
		}
		chapters.Topics = append(chapters.Topics, topic)
	}
	return chapters, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// BuildResourceChunks は要約 (index 0) と章チャンク (index 1..N) をまとめた列を返す
func BuildResourceChunks(courseID, moduleID, resourceID int64, summary string, chapters *Chapters, maxWords int) []Chunk {
	var chunks []Chunk
	if summary != "" {
		chunks = append(chunks, Chunk{
			ChunkID:    ChunkID(courseID, moduleID, resourceID, 0),
			Type:       TypeSummary,
			Index:      0,
			Text:       summary,
			CourseID:   courseID,
			ModuleID:   moduleID,
			ResourceID: resourceID,
		})
	}

	for i, tc := range ExtractTopicChunks(chapters, maxWords) {
		idx := i + 1
		chunks = append(chunks, Chunk{
			ChunkID:       ChunkID(courseID, moduleID, resourceID, idx),
			Type:          TypeChapter,
			Index:         idx,
			Text:          tc.Text,
			TopicTitle:    tc.TopicTitle,
			SubtopicTitle: tc.SubtopicTitle,
			CourseID:      courseID,
			ModuleID:      moduleID,
			ResourceID:    resourceID,
		})
	}
	return chunks
}
