package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"sales-chat-api/pkg/models"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	historyCollectionName = "sales_chat_history"
	embeddingVectorSize   = uint64(1536) // text-embedding-3-smallの次元数
)

// Embedder はテキストをベクトル化するコラボレーターの最小契約。
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorStoreService は会話メモリーとしてのQdrantとのやり取りを管理します。
// 予測系のやり取りを埋め込み付きで保存し、後続クエリの文脈として
// 類似の過去会話を検索する。設定が無ければサービス全体が省略される。
type VectorStoreService struct {
	qdrantClient            qdrant.PointsClient
	qdrantCollectionsClient qdrant.CollectionsClient
	embedder                Embedder
}

// NewVectorStoreService は新しいVectorStoreServiceを初期化して返します。
// Qdrantに到達できない場合はエラーを返し、呼び出し側はnilのまま
// 会話メモリーなしで運用を続ける。
func NewVectorStoreService(embedder Embedder, qdrantURL string, qdrantAPIKey string) (*VectorStoreService, error) {
	// 接続オプション
	var dialOpts []grpc.DialOption

	// APIキーの有無で、Cloud接続(TLS+APIキー)とローカル接続(非セキュア)を切り替える
	if qdrantAPIKey != "" {
		log.Println("Qdrant Cloud (TLS) への接続を準備します...")
		creds := credentials.NewTLS(&tls.Config{})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))

		// APIキー認証インターセプタを追加
		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		log.Println("ローカルのQdrant (非TLS) への接続を準備します...")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// gRPC接続を確立
	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("QdrantへのgRPCクライアント作成に失敗: %w", err)
	}

	s := &VectorStoreService{
		qdrantClient:            qdrant.NewPointsClient(conn),
		qdrantCollectionsClient: qdrant.NewCollectionsClient(conn),
		embedder:                embedder,
	}

	if err := s.ensureHistoryCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureHistoryCollection は履歴コレクションの存在を確認し、なければ作成します。
// Qdrantサーバーの起動完了を待つためリトライする。
func (s *VectorStoreService) ensureHistoryCollection() error {
	maxRetries := 10
	retryInterval := 2 * time.Second
	var collectionExists bool
	var listErr error

	log.Println("Qdrantサーバーの準備を確認中...")
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := s.qdrantCollectionsClient.List(ctx, &qdrant.ListCollectionsRequest{})
		cancel()
		listErr = err
		if err == nil {
			for _, collection := range res.GetCollections() {
				if collection.GetName() == historyCollectionName {
					collectionExists = true
					break
				}
			}
			break
		}
		log.Printf("Qdrantサーバーの準備確認に失敗しました (試行 %d/%d)。%v後に再試行します...", i+1, maxRetries, retryInterval)
		time.Sleep(retryInterval)
	}

	if listErr != nil {
		return fmt.Errorf("Qdrantのコレクションリスト取得に失敗（リトライ上限到達）: %w", listErr)
	}

	if !collectionExists {
		log.Printf("コレクション '%s' が存在しないため、新規作成します。", historyCollectionName)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := s.qdrantCollectionsClient.Create(ctx, &qdrant.CreateCollection{
			CollectionName: historyCollectionName,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     embeddingVectorSize,
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("Qdrantのコレクション作成に失敗: %w", err)
		}
		log.Printf("コレクション '%s' を作成しました。", historyCollectionName)
	}
	return nil
}

// SaveConversationEntry は会話の1エントリーを埋め込み付きで保存します。
func (s *VectorStoreService) SaveConversationEntry(ctx context.Context, entry models.ChatHistoryEntry) error {
	vector, err := s.embedder.CreateEmbedding(ctx, entry.Message)
	if err != nil {
		return fmt.Errorf("メッセージのベクトル化に失敗: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	payload := map[string]*qdrant.Value{
		"text":       {Kind: &qdrant.Value_StringValue{StringValue: entry.Message}},
		"session_id": {Kind: &qdrant.Value_StringValue{StringValue: entry.SessionID}},
		"role":       {Kind: &qdrant.Value_StringValue{StringValue: entry.Role}},
		"timestamp":  {Kind: &qdrant.Value_StringValue{StringValue: entry.Timestamp}},
	}
	if entry.ItemID != 0 {
		payload["item_id"] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(entry.ItemID)}}
	}
	if entry.Date != "" {
		payload["date"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: entry.Date}}
	}

	points := []*qdrant.PointStruct{
		{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: entry.ID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{
						Data: vector,
					},
				},
			},
			Payload: payload,
		},
	}

	waitUpsert := true
	_, err = s.qdrantClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: historyCollectionName,
		Points:         points,
		Wait:           &waitUpsert,
	})
	if err != nil {
		return fmt.Errorf("Qdrantへの履歴保存に失敗: %w", err)
	}

	log.Printf("✅ 会話エントリー '%s' を履歴に保存しました (SessionID=%s)", entry.ID, entry.SessionID)
	return nil
}

// SearchConversationHistory はクエリに類似した過去の会話を検索します。
// sessionIDを指定するとそのセッション内に絞り込む。
func (s *VectorStoreService) SearchConversationHistory(ctx context.Context, queryText, sessionID string, topK uint64) ([]models.ChatHistoryEntry, error) {
	queryVector, err := s.embedder.CreateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("クエリテキストのベクトル化に失敗: %w", err)
	}

	var filter *qdrant.Filter
	if sessionID != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "session_id",
							Match: &qdrant.Match{
								MatchValue: &qdrant.Match_Keyword{
									Keyword: sessionID,
								},
							},
						},
					},
				},
			},
		}
	}

	withPayload := true
	searchResult, err := s.qdrantClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: historyCollectionName,
		Vector:         queryVector,
		Limit:          topK,
		Filter:         filter,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: withPayload}},
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrantでの履歴検索に失敗: %w", err)
	}

	entries := make([]models.ChatHistoryEntry, 0, len(searchResult.GetResult()))
	for _, point := range searchResult.GetResult() {
		entry := models.ChatHistoryEntry{Relevance: float64(point.GetScore())}
		if v, ok := point.Payload["text"]; ok {
			entry.Message = v.GetStringValue()
		}
		if v, ok := point.Payload["session_id"]; ok {
			entry.SessionID = v.GetStringValue()
		}
		if v, ok := point.Payload["role"]; ok {
			entry.Role = v.GetStringValue()
		}
		if v, ok := point.Payload["timestamp"]; ok {
			entry.Timestamp = v.GetStringValue()
		}
		if v, ok := point.Payload["item_id"]; ok {
			entry.ItemID = int(v.GetIntegerValue())
		}
		if v, ok := point.Payload["date"]; ok {
			entry.Date = v.GetStringValue()
		}
		entries = append(entries, entry)
	}

	log.Printf("📚 '%s' に類似した %d 件の会話履歴を取得しました", queryText, len(entries))
	return entries, nil
}

// ListCollections はQdrant上の全コレクション名を返します。
func (s *VectorStoreService) ListCollections(ctx context.Context) ([]string, error) {
	res, err := s.qdrantCollectionsClient.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("Qdrantのコレクションリスト取得に失敗: %w", err)
	}
	names := make([]string, 0, len(res.GetCollections()))
	for _, collection := range res.GetCollections() {
		names = append(names, collection.GetName())
	}
	return names, nil
}

// DeleteSessionEntries は指定セッションの会話エントリーをすべて削除します。
// sessionIDが空の場合は履歴コレクションの全エントリーを削除する。
func (s *VectorStoreService) DeleteSessionEntries(ctx context.Context, sessionID string) error {
	filter := &qdrant.Filter{}
	if sessionID != "" {
		filter.Must = []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "session_id",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{
								Keyword: sessionID,
							},
						},
					},
				},
			},
		}
	}

	waitDelete := true
	_, err := s.qdrantClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: historyCollectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
		Wait: &waitDelete,
	})
	if err != nil {
		return fmt.Errorf("Qdrantからの履歴削除に失敗: %w", err)
	}
	log.Printf("🗑️ 会話履歴を削除しました (SessionID=%q)", sessionID)
	return nil
}
