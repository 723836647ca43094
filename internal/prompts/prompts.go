package prompts

// ============================================================================
// 分類ラベル (Classification vocabulary)
// ============================================================================

// UnknownLabel is stored for any field the classifier could not decide.
const UnknownLabel = "不明"

// StyleLabels is the closed vocabulary for expression style.
var StyleLabels = []string{"丁寧", "カジュアル", "簡潔", "抽象的", "専門的"}

// EmotionLabels is the closed vocabulary for emotion polarity.
var EmotionLabels = []string{"ポジティブ", "ネガティブ", "ニュートラル"}

// IntensityLabels is the closed vocabulary for emotional intensity.
var IntensityLabels = []string{"大きい", "普通", "小さい"}

// TopicLabels is the closed vocabulary for topic genre.
var TopicLabels = []string{"技術", "哲学", "芸術", "社会", "雑談"}

// ============================================================================
// Classification Prompts
// ============================================================================

// ClassificationSystemPrompt asks the model for a four-field JSON label set.
const ClassificationSystemPrompt = `あなたは会話スタイルの専門家です。ユーザーの発言を読み取り、次のカテゴリに分類してください：

1. 表現スタイル（次の中から1つ）：
- 丁寧
- カジュアル
- 簡潔
- 抽象的
- 専門的

2. 感情（次の中から1つ）：
- ポジティブ
- ネガティブ
- ニュートラル

3. 感情の起伏（次の中から1つ）：
- 大きい
- 普通
- 小さい

4. 話題ジャンル（次の中から1つ）：
- 技術
- 哲学
- 芸術
- 社会
- 雑談

出力は次のJSON形式で返してください：

{
  "style": "",
  "emotion": "",
  "emotional_intensity": "",
  "topic": ""
}`

// ClassificationUserPrompt is formatted with the message text.
const ClassificationUserPrompt = "以下の発言を分析してください：\n%s"

// ============================================================================
// Explanation Prompts
// ============================================================================

// ExplanationSystemPrompt asks for a short rationale of why two messages are similar.
const ExplanationSystemPrompt = `あなたは会話分析の専門家です。2つの発言が与えられます。
両者が意味的に似ている理由を、話題・感情・表現スタイルの観点から1〜2文で簡潔に説明してください。
前置きや箇条書きは不要です。説明文のみを出力してください。`

// ExplanationUserPrompt is formatted with the query text and the matched text.
const ExplanationUserPrompt = "発言A：%s\n発言B：%s"
